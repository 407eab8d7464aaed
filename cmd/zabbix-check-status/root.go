package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hardened-user/zabbix-check-status/internal/checker"
	"github.com/hardened-user/zabbix-check-status/internal/config"
	"github.com/hardened-user/zabbix-check-status/internal/logging"
	"github.com/hardened-user/zabbix-check-status/internal/pidfile"
	"github.com/hardened-user/zabbix-check-status/internal/prompt"
	"github.com/hardened-user/zabbix-check-status/internal/report"
)

// errRunFailed is returned after the failure has already been logged
var errRunFailed = errors.New("run failed")

var (
	cfgFile     string
	verbosity   int
	noColor     bool
	interactive bool
	testMode    bool
	reportPath  string
	webhookURL  string
	pidPath     string
)

var rootCmd = &cobra.Command{
	Use:   "zabbix-check-status [server] [host]",
	Short: "Report unsupported items, triggers and LLD rules on Zabbix servers",
	Long: `zabbix-check-status logs in to every Zabbix server configured in an INI
file and reports discovery rules, items and triggers that are enabled but in a
broken state.

The optional positional arguments narrow the run to one server (a section of
the configuration file) and one host. In interactive mode every broken item
and trigger can be disabled after confirmation.

The exit code is 0 only when nothing broken was found and every server could
be checked.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: config.ini next to the executable)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output (-v debug, -vv trace)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "colorama-disabled", false, "disable coloured output")
	_ = rootCmd.PersistentFlags().MarkHidden("colorama-disabled")

	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask to disable every broken item and trigger")
	rootCmd.Flags().BoolVar(&testMode, "test", false, "only check the API connection of every server")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "write the run summary to a file (.yaml, .json or .md)")
	rootCmd.Flags().StringVar(&webhookURL, "notify-webhook", "", "POST the run summary to this URL when done")
	rootCmd.Flags().StringVar(&pidPath, "pid-file", pidfile.DefaultPath(os.Args[0]), "marker file preventing concurrent runs")

	rootCmd.Version = "1.0.0"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (zerolog.Logger, bool) {
	color := logging.ColorEnabled(noColor, os.Stdout)
	env := config.LogSettingsFromEnv()
	return logging.New(os.Stdout, logging.Options{
		Verbosity: verbosity,
		BaseLevel: env.Level,
		Color:     color,
		Datetime:  env.Datetime,
	}), color
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, color := newLogger()

	opts := checker.Options{Interactive: interactive, Test: testMode}
	if len(args) > 0 {
		opts.Server = args[0]
	}
	if len(args) > 1 {
		opts.Host = args[1]
	}

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	file, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrNothingToDo):
		logger.Info().Str("config", path).Msg("Nothing to do")
		return errRunFailed
	case err != nil:
		logger.Error().Err(err).Str("config", path).Msg("Configuration failed")
		return errRunFailed
	}

	pid, err := pidfile.Create(pidPath, logger)
	if err != nil {
		logger.Error().Err(err).Str("path", pidPath).Msg("Failed to create PID file")
		return errRunFailed
	}
	stop := removeOnSignal(pid, logger)

	printer := report.NewPrinter(os.Stdout, color)
	summary := checker.Run(cmd.Context(), opts, file, checker.Deps{
		Connect: checker.ZabbixConnector,
		Prompt:  prompt.NewConsole(os.Stdin, os.Stdout, color),
		Display: printer,
		Logger:  logger,
	})

	stop()
	if err := pid.Remove(); err != nil {
		logger.Error().Err(err).Str("path", pid.Path()).Msg("Failed to delete PID file")
		summary.MarkFailed()
	}
	summary.Finish()
	printer.Summary(summary)

	if reportPath != "" {
		if err := report.Write(summary, reportPath); err != nil {
			logger.Warn().Err(err).Msg("report not written")
		} else {
			logger.Info().Str("path", reportPath).Msg("report written")
		}
	}

	notifier := &checker.Notifier{WebhookURL: webhookURL}
	if err := notifier.SendCompletion(cmd.Context(), summary); err != nil {
		logger.Warn().Err(err).Msg("completion webhook failed")
	}

	if summary.Failed() {
		return errRunFailed
	}
	return nil
}

// removeOnSignal removes the marker and exits with 1 on SIGINT or SIGTERM.
// The returned func uninstalls the handler and must be called before the
// marker is removed on the normal path.
func removeOnSignal(pid *pidfile.File, logger zerolog.Logger) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			logger.Info().Str("signal", sig.String()).Msg("Interrupted")
			if err := pid.Remove(); err != nil {
				logger.Error().Err(err).Str("path", pid.Path()).Msg("Failed to delete PID file")
			}
			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

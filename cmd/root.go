package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"pgpgate/internal/configs"
	logger "pgpgate/internal/logging"
	"pgpgate/internal/pgp"
	"pgpgate/internal/workflows"
)

var (
	verbose      bool
	debug        bool
	settingsPath string

	Logger logger.Logger
)

func init() {
	for _, c := range []*cobra.Command{EncryptCmd, DecryptCmd, ExchangeCmd, KeysCmd} {
		c.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
		c.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
		c.Flags().StringVarP(&settingsPath, "settings", "s", "settings.json", "path to the runtime settings file")
	}
}

// initLogger builds the command logger from the shared flags. Called at the
// top of every RunE.
func initLogger() {
	Logger = logger.Logger{Verbose: verbose, Debug: debug}
}

// loadSession loads the runtime settings, opens the keystore engine, and
// initializes the workflow session.
func loadSession(ctx context.Context) (*workflows.Session, configs.RuntimeSettings, error) {
	Logger.Debugf("Loading settings from %s", settingsPath)
	settings, err := configs.Load(settingsPath)
	if err != nil {
		return nil, nil, err
	}
	if err := settings.Require(configs.KeyKeyStoreFolder); err != nil {
		return nil, nil, err
	}

	Logger.Debugf("Opening keystore at %s", settings.Trimmed(configs.KeyKeyStoreFolder))
	engine, err := pgp.NewKeystoreEngine(settings.Trimmed(configs.KeyKeyStoreFolder))
	if err != nil {
		return nil, nil, err
	}

	session, err := workflows.Initialize(ctx, workflows.InitOptions{
		Settings: settings,
		Engine:   engine,
		Logger:   Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return session, settings, nil
}

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. Returns the spinner and a cleanup function that
// should be deferred; cleanup prints the spinner's FinalMSG.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// No colored spinner is fine; continue without it.
		Logger.Debugf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		s.Stop()
		if s.FinalMSG != "" {
			fmt.Println(strings.TrimRight(s.FinalMSG, "\n"))
		}
	}
	return s, cleanup
}

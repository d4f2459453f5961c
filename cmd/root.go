////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package cmd initializes the CLI and config parsers as well as the logger.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gitlab.com/elixxir/ekv"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/api"
	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/push"
	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/storage/versioned"
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dashchat",
	Short: "Messaging client for the event platform",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			jww.ERROR.Printf("%+v", err)
		}
	},
}

// startProfiling enables CPU profiling when the profile-cpu flag is set. The
// returned function stops the profiler.
func startProfiling() func() {
	profileDir := viper.GetString("profile-cpu")
	if profileDir == "" {
		return func() {}
	}

	p := profile.Start(profile.CPUProfile, profile.ProfilePath(profileDir))
	return p.Stop
}

// buildManager wires up the whole SDK from the global flags: the versioned
// storage, the REST client, the optional push channel, and the Manager bound
// to the given event model. The returned closer tears everything down.
func buildManager(model messaging.EventModel) (*messaging.Manager, func()) {
	initLog(viper.GetUint("logLevel"), viper.GetString("log"))

	localUserID := viper.GetInt64("userid")
	if localUserID == 0 {
		jww.FATAL.Panicf("The userid flag is required")
	}

	apiParams := api.GetDefaultParams()
	apiParams.BaseURL = viper.GetString("api-url")
	apiParams.AuthToken = viper.GetString("auth-token")
	client, err := api.NewClient(apiParams)
	if err != nil {
		jww.FATAL.Panicf("Failed to build the REST client: %+v", err)
	}

	var bus messaging.PushBus
	var channel *push.Channel
	if wsURL := viper.GetString("ws-url"); wsURL != "" {
		pushParams := push.GetDefaultParams()
		pushParams.URL = wsURL
		pushParams.AuthToken = viper.GetString("auth-token")
		pushParams.LocalUserID = localUserID
		channel, err = push.NewChannel(pushParams)
		if err != nil {
			jww.FATAL.Panicf("Failed to build the push channel: %+v", err)
		}
		if err = channel.Start(); err != nil {
			jww.FATAL.Panicf("Failed to start the push channel: %+v", err)
		}
		bus = channel
	}

	kv := makeStorage(viper.GetString("session"),
		viper.GetString("password"))

	params := messaging.GetDefaultParams()
	if interval := viper.GetDuration("poll-interval"); interval > 0 {
		params.PollInterval = interval
	}

	manager := messaging.NewManager(
		client, bus, model, kv, localUserID, params)

	return manager, func() {
		manager.Close()
		if channel != nil {
			if err := channel.Close(); err != nil {
				jww.ERROR.Printf(
					"Failed to close the push channel: %+v", err)
			}
		}
	}
}

// makeStorage opens the on-disk session store, or falls back to an in-memory
// store when no session directory is given.
func makeStorage(baseDir, password string) *versioned.KV {
	if baseDir == "" {
		jww.WARN.Printf("No session directory given; local state " +
			"(recent searches, unsent messages) will not survive restarts")
		return versioned.NewKV(ekv.MakeMemstore())
	}

	fs, err := ekv.NewFilestore(baseDir, password)
	if err != nil {
		jww.FATAL.Panicf(
			"Failed to open session store at %q: %+v", baseDir, err)
	}
	return versioned.NewKV(fs)
}

// initLog initializes logging thresholds and the log path.
func initLog(threshold uint, logPath string) {
	if logPath != "-" && logPath != "" {
		// Disable stdout output
		jww.SetStdoutOutput(io.Discard)
		// Use log file
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err.Error())
		}
		jww.SetLogOutput(logOutput)
	}

	if threshold > 1 {
		jww.SetStdoutThreshold(jww.LevelTrace)
		jww.SetLogThreshold(jww.LevelTrace)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
		jww.INFO.Printf("log level set to: TRACE")
	} else if threshold == 1 {
		jww.SetStdoutThreshold(jww.LevelDebug)
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
		jww.INFO.Printf("log level set to: DEBUG")
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
		jww.SetLogThreshold(jww.LevelInfo)
		jww.INFO.Printf("log level set to: INFO")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configFile := viper.GetString("config")
	if configFile == "" {
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Could not read config file %q: %+v\n", configFile, err)
		os.Exit(1)
	}
}

func init() {
	// NOTE: The point of init() is to be declarative. There is one init in
	// each sub command.
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().UintP("logLevel", "v", 0,
		"Verbose mode for debugging")
	viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))

	rootCmd.PersistentFlags().StringP("log", "l", "-",
		"Path to the log output path (- is stdout)")
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))

	rootCmd.PersistentFlags().String("config", "",
		"Path to a YAML config file binding these same flags")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().StringP("api-url", "a", "",
		"Base URL of the platform REST API")
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))

	rootCmd.PersistentFlags().String("ws-url", "",
		"URL of the push websocket endpoint (empty falls back to polling)")
	viper.BindPFlag("ws-url", rootCmd.PersistentFlags().Lookup("ws-url"))

	rootCmd.PersistentFlags().StringP("auth-token", "t", "",
		"Bearer token for the platform API")
	viper.BindPFlag("auth-token",
		rootCmd.PersistentFlags().Lookup("auth-token"))

	rootCmd.PersistentFlags().Int64P("userid", "u", 0,
		"The local user's ID on the platform")
	viper.BindPFlag("userid", rootCmd.PersistentFlags().Lookup("userid"))

	rootCmd.PersistentFlags().StringP("session", "s", "",
		"Sets the storage directory for local session data")
	viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))

	rootCmd.PersistentFlags().StringP("password", "p", "",
		"Password to the session file")
	viper.BindPFlag("password",
		rootCmd.PersistentFlags().Lookup("password"))

	rootCmd.PersistentFlags().Duration("poll-interval", 5*time.Second,
		"Cadence of first-page refreshes while the push channel is down")
	viper.BindPFlag("poll-interval",
		rootCmd.PersistentFlags().Lookup("poll-interval"))

	rootCmd.PersistentFlags().String("profile-cpu", "",
		"Enable cpu profiling into this directory")
	viper.BindPFlag("profile-cpu",
		rootCmd.PersistentFlags().Lookup("profile-cpu"))
}

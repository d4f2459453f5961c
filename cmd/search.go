////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/abrhamtibebu/event-horizon-dashboards-sub000/messaging"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the platform for messages, users, or events",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		stopProfiling := startProfiling()
		defer stopProfiling()

		manager, closer := buildManager(consoleModel{})
		defer closer()

		query := viper.GetString("query")
		if query == "" {
			jww.FATAL.Panicf("The query flag is required")
		}

		results, err := manager.Search(query, viper.GetString("kind"))
		if err != nil {
			jww.FATAL.Panicf("Search failed: %+v", err)
		}

		for i := range results {
			printResult(&results[i])
		}
		fmt.Printf("%d results\n", len(results))

		if recent := manager.RecentSearches(); len(recent) > 0 {
			fmt.Printf("recent searches: %v\n", recent)
		}
	},
}

func printResult(result *messaging.SearchResult) {
	switch result.Kind {
	case "message":
		msg := result.Message
		fmt.Printf("message [%d] %s: %s\n",
			msg.ID, msg.SenderName, msg.Content)
	case "user":
		fmt.Printf("user    [%d] %s\n", result.UserID, result.Label)
	case "event":
		fmt.Printf("event   [%d] %s\n", result.EventID, result.Label)
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "",
		"The text to search for")
	viper.BindPFlag("query", searchCmd.Flags().Lookup("query"))

	searchCmd.Flags().StringP("kind", "k", "",
		"Restrict results to one kind: message, user, or event")
	viper.BindPFlag("kind", searchCmd.Flags().Lookup("kind"))
}

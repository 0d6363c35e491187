package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vantagehq/vantage/internal/buildinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show version and build details",
	Long:  `Prints the build identity of this binary, or of a running server when --server (or VANTAGE_ADDR) is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString(ServerAddrKey)
		if server == "" {
			local := buildinfo.GetBuildInfo()
			printInfo("this binary", &local)
			return nil
		}

		cli, err := getClient()
		if err != nil {
			return err
		}
		info, correlation, err := cli.Info(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to get info from server")
		}
		printInfo(server, info)
		return nil
	},
}

func printInfo(source string, info *buildinfo.Info) {
	fmt.Printf("%s %s\n", bold(info.Service), info.Version)
	fmt.Printf("  %s: %s\n", faint("commit"), info.CommitHash)
	fmt.Printf("  %s: %s\n", faint("source"), source)
	if info.About != "" {
		fmt.Printf("  %s:  %s\n", faint("about"), info.About)
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

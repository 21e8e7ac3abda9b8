/*
Copyright © 2024 Harsh Varagiya

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HarshVaragiya/pailfrog/internal/ranges"
)

var (
	rangesRegionRegex  string
	rangesServiceRegex string
	watchInterval      time.Duration
)

// rangesCmd represents the ranges command
var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "manage the cached cloud provider IP ranges",
}

var rangesUpdateCmd = &cobra.Command{
	Use:   "update [provider...]",
	Short: "download the published IP ranges of every (or the given) provider",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancelFunc := NewSignalContext()
		defer cancelFunc()
		manager := newRangeManager(newHTTPClient())
		failed := false
		for _, source := range sourcesFromArgs(args) {
			body, err := manager.Update(ctx, source)
			if err != nil {
				log.WithFields(logrus.Fields{"state": source.Name(), "action": "update-cidr-range", "errmsg": err.Error()}).Error("error updating ranges")
				failed = true
				continue
			}
			prefixes, _ := source.Parse(body, ranges.Filter{})
			fmt.Printf("%-14s %6d prefixes  %s\n", source.Name(), len(prefixes), manager.Cache.Path(source.Name()))
		}
		if failed {
			os.Exit(1)
		}
	},
}

var rangesListCmd = &cobra.Command{
	Use:   "list <provider>",
	Short: "print the ranges of a provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancelFunc := NewSignalContext()
		defer cancelFunc()
		source, err := ranges.GetSource(args[0])
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("unknown provider")
		}
		filter, err := ranges.NewFilter(rangesRegionRegex, rangesServiceRegex)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("invalid filter")
		}
		prefixes, err := newRangeManager(newHTTPClient()).Ranges(ctx, source, filter, false)
		if err != nil {
			log.WithFields(logrus.Fields{"state": source.Name(), "errmsg": err.Error()}).Fatal("error loading ranges")
		}
		fmt.Println(prefixTable(prefixes))
	},
}

var rangesLookupCmd = &cobra.Command{
	Use:   "lookup <ip> [provider...]",
	Short: "show which provider ranges contain an address",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ip := net.ParseIP(args[0])
		if ip == nil {
			log.WithFields(logrus.Fields{"state": "main", "ip": args[0]}).Fatal("invalid IP address")
		}
		ctx, cancelFunc := NewSignalContext()
		defer cancelFunc()
		index, err := newRangeManager(newHTTPClient()).IndexAll(ctx, sourcesFromArgs(args[1:]), ranges.Filter{}, false)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("error building range index")
		}
		prefixes, err := index.Lookup(ip)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("error looking up address")
		}
		if len(prefixes) == 0 {
			fmt.Printf("%s is not in any known range\n", ip)
			cancelFunc()
			os.Exit(1)
		}
		fmt.Println(prefixTable(prefixes))
	},
}

var rangesWatchCmd = &cobra.Command{
	Use:   "watch [provider...]",
	Short: "keep the cached ranges fresh until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancelFunc := NewSignalContext()
		defer cancelFunc()
		manager := newRangeManager(newHTTPClient())
		log.WithFields(logrus.Fields{"state": "main", "interval": watchInterval.String()}).Info("watching published ranges")
		manager.Watch(ctx, sourcesFromArgs(args), watchInterval)
	},
}

func init() {
	rootCmd.AddCommand(rangesCmd)
	rangesCmd.AddCommand(rangesUpdateCmd, rangesListCmd, rangesLookupCmd, rangesWatchCmd)
	rangesListCmd.Flags().StringVarP(&rangesRegionRegex, "region-regex", "r", "", "only list ranges of regions matching this regex")
	rangesListCmd.Flags().StringVar(&rangesServiceRegex, "service-regex", "", "only list ranges of services matching this regex")
	rangesWatchCmd.Flags().DurationVar(&watchInterval, "interval", DEFAULT_WATCH_INTERVAL, "how often to download the ranges again")
}

func sourcesFromArgs(args []string) []ranges.Source {
	if len(args) == 0 {
		return ranges.Sources()
	}
	sources := make([]ranges.Source, 0, len(args))
	for _, name := range args {
		source, err := ranges.GetSource(name)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("unknown provider")
		}
		sources = append(sources, source)
	}
	return sources
}

func prefixTable(prefixes []ranges.Prefix) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Provider", "CIDR", "Region", "Service"})
	for _, prefix := range prefixes {
		t.AppendRow(table.Row{prefix.Provider, prefix.CIDR, prefix.Region, prefix.Service})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d prefixes", len(prefixes)), "", ""})
	return t.Render()
}

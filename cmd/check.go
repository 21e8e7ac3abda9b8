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
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HarshVaragiya/pailfrog/internal/investigate"
	"github.com/HarshVaragiya/pailfrog/internal/report"
)

var (
	jsonOutput bool
	noColor    bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <domain>",
	Short: "check the bucket of a domain and harvest it if it is listable",
	Long: `resolve <domain>.s3.amazonaws.com (or the bucket host of --provider), test
whether it sits in the provider's published IP ranges and, when the bucket
root is publicly listable, request every key and save the readable ones.
Exits with status 1 when the bucket is not in a known range.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
		ctx, cancelFunc := NewSignalContext()
		inv, cleanup := buildInvestigator()

		r, err := inv.Run(ctx, args[0])
		if r != nil {
			if jsonOutput {
				if werr := r.WriteJSON(os.Stdout); werr != nil {
					log.WithFields(logrus.Fields{"state": "main", "errmsg": werr.Error()}).Error("error writing report")
				}
			} else {
				report.Print(os.Stdout, r)
			}
			if target := GetExportTarget(); target != nil {
				reportChan, wg := StartExport(target)
				reportChan <- r
				close(reportChan)
				wg.Wait()
			}
		}
		cleanup()
		cancelFunc()

		switch {
		case errors.Is(err, investigate.ErrNotInRange):
			os.Exit(1)
		case err != nil:
			log.WithFields(logrus.Fields{"state": "main", "domain": args[0], "errmsg": err.Error()}).Fatal("error checking bucket")
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addBucketFlags(checkCmd.Flags())
	addExportFlags(checkCmd.Flags(), "")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	checkCmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

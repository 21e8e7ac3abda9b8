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
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HarshVaragiya/pailfrog/internal/queue"
)

var (
	jobsFile     string
	jobsProvider string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add [domain...]",
	Short: "add bucket checks to the worker queue",
	Run: func(cmd *cobra.Command, args []string) {
		domains := append([]string{}, args...)
		if jobsFile != "" {
			fileDomains, err := readDomains(jobsFile)
			if err != nil {
				log.WithFields(logrus.Fields{"state": "add", "errmsg": err.Error()}).Fatal("error reading domains file")
			}
			domains = append(domains, fileDomains...)
		}
		if len(domains) == 0 {
			log.WithFields(logrus.Fields{"state": "add"}).Fatal("no domains given")
		}

		ctx := context.Background()
		rdb := newRedisClient()
		defer rdb.Close()
		q := queue.New(rdb, workerName())

		jobs := make([]*queue.Job, 0, len(domains))
		for _, domain := range domains {
			jobs = append(jobs, queue.NewJob(domain, jobsProvider))
		}
		added, err := q.Add(ctx, jobs...)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "add", "errmsg": err.Error()}).Fatal("error adding jobs to queue")
		}
		lengths, err := q.Len(ctx)
		if err != nil {
			log.WithFields(logrus.Fields{"state": "add", "errmsg": err.Error()}).Fatal("error reading queue length")
		}
		log.WithFields(logrus.Fields{"state": "add"}).Infof("jobs added to queue : %d", added)
		log.WithFields(logrus.Fields{"state": "add"}).Infof("job queue size      : %d", lengths.Todo)
	},
}

func init() {
	workerCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&jobsFile, "file", "f", "", "file with one domain per line")
	addCmd.Flags().StringVar(&jobsProvider, "provider", "aws", "bucket provider of the queued domains")
}

// readDomains returns the non empty lines of filename, skipping # comments.
func readDomains(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	return domains, scanner.Err()
}

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
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HarshVaragiya/pailfrog/internal/investigate"
	"github.com/HarshVaragiya/pailfrog/internal/queue"
	"github.com/HarshVaragiya/pailfrog/internal/report"
)

var (
	requeueJobs   bool
	statsInterval time.Duration
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "check queued buckets until the queue is empty",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancelFunc := NewSignalContext()
		defer cancelFunc()

		rdb := newRedisClient()
		defer rdb.Close()
		q := queue.New(rdb, workerName())
		if requeueJobs {
			moved, err := q.Requeue(ctx)
			if err != nil {
				log.WithFields(logrus.Fields{"state": "main", "errmsg": err.Error()}).Fatal("error requeueing in-progress jobs")
			}
			log.WithFields(logrus.Fields{"state": "main", "worker": q.Worker()}).Infof("moved %d in-progress jobs of stopped workers back to the todo queue", moved)
		}

		exportTarget := GetExportTarget()
		if exportTarget == nil {
			log.WithFields(logrus.Fields{"state": "main"}).Fatal("worker process needs an export target")
		}
		reportChan, resultWg := StartExport(exportTarget)
		inv, cleanup := buildInvestigator()
		defer cleanup()

		statsCtx, stopStats := context.WithCancel(context.Background())
		statsDone := make(chan struct{})
		go func() {
			q.ExportStatsPeriodically(statsCtx, statsInterval, collectWorkerStats)
			close(statsDone)
		}()

	WorkerLoop:
		for {
			select {
			case <-ctx.Done():
				log.WithFields(logrus.Fields{"state": "process", "type": "mgmt"}).Infof("context done. exiting worker loop")
				break WorkerLoop
			default:
			}
			job, err := q.Next(ctx)
			if errors.Is(err, queue.ErrQueueEmpty) {
				log.WithFields(logrus.Fields{"state": "process", "type": "mgmt"}).Infof("job queue empty")
				break WorkerLoop
			}
			if err != nil {
				log.WithFields(logrus.Fields{"state": "process", "type": "mgmt", "errmsg": err.Error()}).Errorf("error popping job from queue")
				if ctx.Err() != nil {
					break WorkerLoop
				}
				time.Sleep(5 * time.Second)
				continue
			}
			status := processJob(ctx, inv, job, reportChan)
			if ctx.Err() != nil {
				// leave the job in progress so --requeue can pick it up again
				break WorkerLoop
			}
			if err := q.Done(context.Background(), job, status); err != nil {
				log.WithFields(logrus.Fields{"state": "process", "type": "mgmt", "job-id": job.JobId, "errmsg": err.Error()}).Errorf("error moving job to done queue")
			}
		}
		log.WithFields(logrus.Fields{"state": "process"}).Infof("worker loop ended")
		close(reportChan)
		resultWg.Wait()
		log.WithFields(logrus.Fields{"state": "process"}).Infof("result exporting finished")
		stopStats()
		<-statsDone
	},
}

func init() {
	workerCmd.AddCommand(processCmd)
	addBucketFlags(processCmd.Flags())
	addExportFlags(processCmd.Flags(), "disk")
	processCmd.Flags().BoolVar(&requeueJobs, "requeue", false, "move in-progress jobs of this worker and of workers without a heartbeat back to the todo queue before starting")
	processCmd.Flags().DurationVar(&statsInterval, "stats-interval", DEFAULT_STATS_INTERVAL, "how often to publish worker stats to redis")
}

func processJob(ctx context.Context, inv *investigate.Investigator, job *queue.Job, reportChan chan<- *report.Report) string {
	fields := logrus.Fields{"state": "process", "job-id": job.JobId, "domain": job.Domain}
	log.WithFields(fields).Infof("processing job")
	jobInv := *inv
	if job.Provider != "" {
		jobInv.Config.Provider = job.Provider
	}
	r, err := jobInv.Run(ctx, job.Domain)
	if r != nil {
		reportChan <- r
	}
	switch {
	case err == nil:
		jobsDone.Add(1)
		return "done"
	case errors.Is(err, investigate.ErrNotInRange):
		jobsDone.Add(1)
		return "not-in-range"
	default:
		jobsFailed.Add(1)
		log.WithFields(fields).WithField("errmsg", err.Error()).Error("error checking bucket")
		return "failed"
	}
}

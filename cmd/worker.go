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
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	redisHost     string
	redisPassword string
	redisDB       int
	workerID      string
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "pailfrog worker subcommand",
	Long:  `used to run pailfrog as a worker checking buckets queued in redis`,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.PersistentFlags().StringVar(&redisHost, "redis-host", "localhost:6379", "redis host address")
	workerCmd.PersistentFlags().StringVar(&redisPassword, "redis-password", "", "redis password")
	workerCmd.PersistentFlags().IntVar(&redisDB, "redis-db", 0, "redis database")
	workerCmd.PersistentFlags().StringVar(&workerID, "worker-id", "", "name of this worker in redis (default hostname)")
}

// workerName is the id used for the worker's in-progress list and stats.
func workerName() string {
	if workerID != "" {
		return workerID
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "pailfrog-worker"
	}
	return hostname
}

func newRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     redisHost,
		Password: redisPassword,
		DB:       redisDB,
	})
}

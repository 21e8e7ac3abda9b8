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
	"sync/atomic"

	"github.com/HarshVaragiya/pailfrog/internal/export"
	"github.com/HarshVaragiya/pailfrog/internal/investigate"
)

var (
	jobsDone   atomic.Int64
	jobsFailed atomic.Int64
)

// collectWorkerStats is everything a worker publishes to redis.
func collectWorkerStats() map[string]int64 {
	stats := investigate.Stats()
	stats["jobs-done"] = jobsDone.Load()
	stats["jobs-failed"] = jobsFailed.Load()
	stats["reports-exported"] = export.ReportsExported.Load()
	stats["reports-processed"] = export.ReportsProcessed.Load()
	return stats
}

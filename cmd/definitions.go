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
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_RANGES_MAX_AGE   = 24 * time.Hour
	DEFAULT_HTTP_TIMEOUT     = 30 * time.Second
	DEFAULT_WATCH_INTERVAL   = time.Hour
	DEFAULT_STATS_INTERVAL   = 30 * time.Second
	DEFAULT_DISK_EXPORT_FILE = "pailfrog-reports.json"
	DEFAULT_OUTPUT_DIR       = "loot"
)

var (
	log = logrus.StandardLogger()

	cfgFile      string
	debugFlag    bool
	traceFlag    bool
	cacheDir     string
	rangesMaxAge time.Duration
	httpTimeout  time.Duration
	insecureTLS  bool
)

// bucket check flags shared by check and worker process
var (
	bucketProvider    string
	bucketRegion      string
	updateRanges      bool
	regionRegexString string
	serviceRegex      string
	nameserver        string
	useHTTPS          bool
	outputDir         string
	noDownload        bool
	includeGlobs      []string
	excludeGlobs      []string
	maxObjectSize     int64
	maxListPages      int
	threadCount       int
	requestRate       float64
	showProgress      bool
	grabJarm          bool
	jarmRetryCount    int
	geoipCountryDB    string
	geoipASNDB        string
	mirrorBucket      string
	minioEndpoint     string
	minioAccessKey    string
	minioSecretKey    string
	minioSecure       bool
)

// export flags
var (
	exportTargetName            string
	diskFilePath                string
	elasticsearchHost           string
	elasticsearchUsername       string
	elasticsearchPassword       string
	elasticsearchIndex          string
	cassandraConnectionString   string
	cassandraKeyspaceDotTable   string
	cassandraRecordTimeStampKey string
	postgresDSN                 string
)

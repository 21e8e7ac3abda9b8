package export

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"

	"github.com/HarshVaragiya/pailfrog/internal/report"
)

type Cassandra struct {
	session            *gocql.Session
	tableName          string
	recordTimestampKey string
}

// NewCassandra connects to the keyspace half of keyspaceTableName. Rows are
// written to the table half, tagged with recordTimestampKey.
func NewCassandra(connectionString, keyspaceTableName, recordTimestampKey string) (*Cassandra, error) {
	keyspace, tableName, ok := strings.Cut(keyspaceTableName, ".")
	if !ok || keyspace == "" || tableName == "" {
		return nil, fmt.Errorf("expected keyspace.table, got %q", keyspaceTableName)
	}
	cluster := gocql.NewCluster(strings.Split(connectionString, ",")...)
	cluster.Timeout = time.Second * 30
	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("error connecting to cassandra: %w", err)
	}
	return &Cassandra{session: session, tableName: tableName, recordTimestampKey: recordTimestampKey}, nil
}

func (ca *Cassandra) Export(reportChan chan *report.Report, wg *sync.WaitGroup) error {
	defer wg.Done()
	defer ca.session.Close()
	log.WithFields(log.Fields{"state": "cassandra"}).Infof("exporting to cassandra with RecordTsKey: %s", ca.recordTimestampKey)
	for r := range reportChan {
		if err := ca.insert(r); err != nil {
			log.WithFields(log.Fields{"state": "cassandra", "errmsg": err.Error()}).Errorf("error inserting record into cassandra")
		} else {
			ReportsExported.Add(1)
		}
		ReportsProcessed.Add(1)
	}
	return nil
}

func (ca *Cassandra) insert(r *report.Report) error {
	query := ca.session.Query(
		fmt.Sprintf("INSERT INTO %s (record_ts, id, domain, provider, host, ips, matched_range, region, in_range, listable, list_status, object_count, allowed, denied, jarm, check_ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", ca.tableName),
		ca.recordTimestampKey, r.ID, r.Domain, r.Provider, r.Host, r.IPs, r.MatchedRange, r.Region, r.InRange, r.Listable, r.ListStatus, r.ObjectCount, r.Allowed(), r.Denied(), r.JARM, r.Timestamp,
	)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

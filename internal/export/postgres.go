package export

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HarshVaragiya/pailfrog/internal/report"
)

// BucketReport is the row stored per report. The full report is kept as a
// JSON document next to the columns used for querying.
type BucketReport struct {
	ID           string `gorm:"primaryKey"`
	Domain       string `gorm:"index"`
	Provider     string
	Host         string
	MatchedRange string
	Region       string
	InRange      bool
	Listable     bool `gorm:"index"`
	ListStatus   int
	ObjectCount  int
	Allowed      int
	Denied       int
	BytesSaved   int64
	Error        string
	Document     string `gorm:"type:text"`
	CheckedAt    time.Time
}

func (BucketReport) TableName() string {
	return "bucket_reports"
}

func NewBucketReport(r *report.Report) (*BucketReport, error) {
	document, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return &BucketReport{
		ID:           r.ID,
		Domain:       r.Domain,
		Provider:     r.Provider,
		Host:         r.Host,
		MatchedRange: r.MatchedRange,
		Region:       r.Region,
		InRange:      r.InRange,
		Listable:     r.Listable,
		ListStatus:   r.ListStatus,
		ObjectCount:  r.ObjectCount,
		Allowed:      len(r.Allowed()),
		Denied:       len(r.Denied()),
		BytesSaved:   r.BytesSaved,
		Error:        r.Error,
		Document:     string(document),
		CheckedAt:    r.Timestamp,
	}, nil
}

type Postgres struct {
	db *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	if err := db.AutoMigrate(&BucketReport{}); err != nil {
		return nil, fmt.Errorf("error migrating bucket_reports: %w", err)
	}
	log.WithFields(log.Fields{"state": "postgres"}).Info("database migration completed")
	return &Postgres{db: db}, nil
}

func (pg *Postgres) Export(reportChan chan *report.Report, wg *sync.WaitGroup) error {
	defer wg.Done()
	log.WithFields(log.Fields{"state": "postgres"}).Info("exporting to postgres table bucket_reports")
	for r := range reportChan {
		ReportsProcessed.Add(1)
		row, err := NewBucketReport(r)
		if err != nil {
			log.WithFields(log.Fields{"state": "postgres", "errmsg": err.Error()}).Error("error marshalling report")
			continue
		}
		if err := pg.db.Create(row).Error; err != nil {
			log.WithFields(log.Fields{"state": "postgres", "errmsg": err.Error()}).Error("error inserting report into postgres")
			continue
		}
		ReportsExported.Add(1)
	}
	if sqlDB, err := pg.db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}

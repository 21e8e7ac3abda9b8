package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	log "github.com/sirupsen/logrus"

	"github.com/HarshVaragiya/pailfrog/internal/report"
)

type Elasticsearch struct {
	elasticIndex string
	client       *elasticsearch.Client
	indexer      esutil.BulkIndexer
}

func NewElasticsearch(elasticHost, elasticUser, elasticPass, elasticIndex string) (*Elasticsearch, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:                []string{elasticHost},
		Username:                 elasticUser,
		Password:                 elasticPass,
		RetryBackoff:             func(i int) time.Duration { return time.Duration(i*10) * time.Second },
		MaxRetries:               5,
		CompressRequestBody:      true,
		CompressRequestBodyLevel: gzip.BestCompression,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
	})
	if err != nil {
		log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Errorf("error creating elasticsearch client")
		return nil, err
	}
	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     client,
		Index:      elasticIndex,
		NumWorkers: 1,
		FlushBytes: 1e+6,
	})
	if err != nil {
		log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Errorf("error creating elasticsearch bulk indexer")
		return nil, err
	}
	log.WithFields(log.Fields{"state": "elastic"}).Infof("exporting to elasticsearch at: %s", elasticHost)
	return &Elasticsearch{elasticIndex: elasticIndex, client: client, indexer: indexer}, nil
}

func (es *Elasticsearch) Export(reportChan chan *report.Report, wg *sync.WaitGroup) error {
	defer wg.Done()
	resp, err := es.client.Indices.Create(es.elasticIndex)
	if err != nil {
		log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Error("error creating elasticsearch index")
	} else {
		// 400 means the index already exists
		if resp.IsError() && resp.StatusCode != 400 {
			log.WithFields(log.Fields{"state": "elastic", "errmsg": resp.String()}).Error("error creating elasticsearch index. invalid response")
		}
		resp.Body.Close()
	}
	log.WithFields(log.Fields{"state": "elastic"}).Infof("exporting to elasticsearch index: %s", es.elasticIndex)
	for r := range reportChan {
		ReportsProcessed.Add(1)
		body, err := json.Marshal(r)
		if err != nil {
			log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Error("error marshalling report to JSON")
			continue
		}
		err = es.indexer.Add(context.TODO(), esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: r.ID,
			Body:       bytes.NewReader(body),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				ReportsExported.Add(1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Errorf("error exporting report to elasticsearch")
					return
				}
				log.WithFields(log.Fields{"state": "elastic", "errmsg": res.Error.Reason}).Errorf("error exporting report to elasticsearch")
			},
		})
		if err != nil {
			log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Errorf("error exporting report to elasticsearch")
		}
	}
	if err := es.indexer.Close(context.TODO()); err != nil {
		log.WithFields(log.Fields{"state": "elastic", "errmsg": err.Error()}).Errorf("error flushing bulk indexer")
	}
	stats := es.indexer.Stats()
	log.WithFields(log.Fields{"state": "elastic"}).Infof("indexed %d documents with %d errors", stats.NumFlushed, stats.NumFailed)
	return nil
}

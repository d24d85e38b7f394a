package es

import (
	"context"
	"time"

	"github.com/olivere/elastic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Journal keeps track of welcome name changes.
// Record is called from control connections and must not block them.
type Journal interface {
	Record(Change)
}

// Journals records every change in all of its journals, in order.
type Journals []Journal

func (js Journals) Record(c Change) {
	for _, j := range js {
		j.Record(c)
	}
}

// LogJournal writes changes to the log.
type LogJournal struct {
	Logger logrus.FieldLogger
}

func (j LogJournal) Record(c Change) {
	j.Logger.WithFields(logrus.Fields{
		"previous": c.Previous,
		"remote":   c.Remote,
	}).Infof("welcome name set to %q", c.Name)
}

const (
	queueSize    = 1000
	indexTimeout = 10 * time.Second
)

// Elastic indexes changes in elasticsearch from a background goroutine (see Run).
// Changes recorded while the queue is full are dropped.
type Elastic struct {
	*elastic.Client
	indexName string
	ch        chan Change
	logger    logrus.FieldLogger
}

func NewElastic(client *elastic.Client, index string, logger logrus.FieldLogger) *Elastic {
	return &Elastic{
		Client:    client,
		indexName: index,
		ch:        make(chan Change, queueSize),
		logger:    logger,
	}
}

func (e *Elastic) Record(c Change) {
	select {
	case e.ch <- c:
	default:
		e.logger.Warnf("journal queue full, not indexing name change to %q", c.Name)
	}
}

// Run indexes queued changes until `stop` is closed, then indexes whatever is left in the queue and returns.
// Indexing errors are logged, never returned.
func (e *Elastic) Run(stop <-chan struct{}) error {
	e.logger.Infof("indexing name changes into %s", e.indexName)
	for {
		select {
		case c := <-e.ch:
			e.logErr(e.indexChange(c))
		case <-stop:
			for {
				select {
				case c := <-e.ch:
					e.logErr(e.indexChange(c))
				default:
					return nil
				}
			}
		}
	}
}

func (e *Elastic) indexChange(c Change) error {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	_, err := e.Index().
		Index(e.indexName).
		Type("_doc").
		BodyJson(c).
		Do(ctx)
	return errors.Wrapf(err, "indexing name change to %q", c.Name)
}

func (e *Elastic) logErr(err error) {
	if err != nil {
		e.logger.Error(err.Error())
	}
}

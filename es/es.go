package es

import (
	"strings"

	"github.com/olivere/elastic"
	"github.com/pkg/errors"
)

const local = "http://localhost:9200"

// NewClient returns a client for the elasticsearch node at `url`, "local" is short for http://localhost:9200.
// `auth` is "username:password", or just "username".
// Extra options are applied after the defaults, which turn sniffing off.
func NewClient(url, auth string, options ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	if url == "local" {
		url = local
	}
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}
	if auth != "" {
		username, password := auth, ""
		if sep := strings.IndexRune(auth, ':'); sep >= 0 {
			username, password = auth[:sep], auth[sep+1:]
		}
		opts = append(opts, elastic.SetBasicAuth(username, password))
	}
	client, err := elastic.NewClient(append(opts, options...)...)
	return client, errors.Wrapf(err, "connecting to elasticsearch at %s", url)
}

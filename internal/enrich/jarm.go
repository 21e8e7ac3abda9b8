// Package enrich adds TLS and network ownership details about the address a
// bucket resolved to.
package enrich

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hdm/jarm-go"
	log "github.com/sirupsen/logrus"
)

const (
	jarmDeadlines      = 5 * time.Second
	jarmDefaultBackoff = 500 * time.Millisecond
	jarmReadBufferSize = 1484
	emptyJARM          = "00000000000000000000000000000000000000000000000000000000000000"
)

var ErrJarmNotCalculated = errors.New("could not calculate JARM fingerprint")

// JARM sends the ten JARM client hellos to addr and returns the fuzzy hash.
// host is used as SNI. A failed dial is retried up to retries times.
func JARM(ctx context.Context, host, addr string, port int, retries int) (string, error) {
	remote := net.JoinHostPort(addr, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: jarmDeadlines}
	results := []string{}
	for _, probe := range jarm.GetProbes(host, port) {
		var c net.Conn
		for n := 0; n <= retries; n++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			conn, err := dialer.DialContext(ctx, "tcp", remote)
			if err == nil {
				c = conn
				break
			}
			log.WithFields(log.Fields{"state": "enrich", "action": "jarm", "remote": remote, "errmsg": err.Error()}).Debug("error connecting")
			time.Sleep(jarmDefaultBackoff)
		}
		if c == nil {
			return "", ErrJarmNotCalculated
		}

		c.SetWriteDeadline(time.Now().Add(jarmDeadlines))
		if _, err := c.Write(jarm.BuildProbe(probe)); err != nil {
			results = append(results, "")
			c.Close()
			continue
		}
		c.SetReadDeadline(time.Now().Add(jarmDeadlines))
		buff := make([]byte, jarmReadBufferSize)
		c.Read(buff)
		c.Close()

		ans, err := jarm.ParseServerHello(buff, probe)
		if err != nil {
			results = append(results, "")
			continue
		}
		results = append(results, ans)
	}
	hash := jarm.RawHashToFuzzyHash(strings.Join(results, ","))
	if hash == emptyJARM {
		return "", ErrJarmNotCalculated
	}
	return hash, nil
}

package enrich

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestOpenGeoIPWithoutDatabases(t *testing.T) {
	if _, err := OpenGeoIP("", ""); !errors.Is(err, ErrNoGeoDatabase) {
		t.Fatalf("err = %v, want ErrNoGeoDatabase", err)
	}
}

func TestOpenGeoIPMissingFile(t *testing.T) {
	if _, err := OpenGeoIP(t.TempDir()+"/missing.mmdb", ""); err == nil {
		t.Fatalf("expected error opening missing database")
	}
}

func TestJARMRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	if _, err := JARM(context.Background(), "localhost", "127.0.0.1", port, 0); !errors.Is(err, ErrJarmNotCalculated) {
		t.Fatalf("err = %v, want ErrJarmNotCalculated", err)
	}
}

func TestJARMCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := JARM(ctx, "localhost", "127.0.0.1", 443, 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

// TestTCPDialer_Exchange dials a stand-in ADB server that answers one
// request with OKAY.
func TestTCPDialer_Exchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req := make([]byte, 4+len("host:version"))
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		conn.Write([]byte("OKAY")) //nolint:errcheck
	}()

	// Empty network defaults to tcp.
	conn, err := (&TCPDialer{}).Dial(context.Background(), "", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("000chost:version")); err != nil {
		t.Fatal(err)
	}
	status, err := bufio.NewReader(conn).Peek(4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(status) != "OKAY" {
		t.Errorf("status = %q", status)
	}
}

// TestTCPDialer_RefusedIsVisible checks that a closed port surfaces as
// ECONNREFUSED, which is how a stopped ADB server is detected.
func TestTCPDialer_RefusedIsVisible(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = (&TCPDialer{Timeout: time.Second}).Dial(context.Background(), "tcp", addr)
	if err == nil {
		t.Fatal("expected dial error on a closed port")
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("err = %v, want ECONNREFUSED", err)
	}
}

func TestTCPDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (&TCPDialer{}).Dial(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if err := (&TCPDialer{}).Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestBind_CancelUnblocksRead verifies that cancelling the context
// releases a goroutine blocked on Read.
func TestBind_CancelUnblocksRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Hold the connection open without writing.
		time.Sleep(2 * time.Second)
		conn.Close()
	}()

	conn, err := (&TCPDialer{KeepAlive: -1}).Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stop := Bind(ctx, conn)
	defer stop()

	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = conn.Read(make([]byte, 1))
	if err == nil {
		t.Fatal("expected read error after cancel")
	}
	if time.Since(start) > time.Second {
		t.Errorf("read unblocked too late: %v", time.Since(start))
	}
}

// TestBind_AppliesDeadline verifies the context deadline reaches the socket.
func TestBind_AppliesDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			time.Sleep(2 * time.Second)
			conn.Close()
		}
	}()

	conn, err := (&TCPDialer{}).Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	stop := Bind(ctx, conn)
	defer stop()

	_, err = conn.Read(make([]byte, 1))
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("expected timeout, got %v", err)
	}
}

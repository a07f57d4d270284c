package queue

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDial_UnknownDriver(t *testing.T) {
	client, err := Dial(&config.QueueConfig{Driver: "kafka"}, testLogger())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "unknown queue driver")
}

func TestDial_Beanstalk(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	client, err := Dial(&config.QueueConfig{
		Driver: config.QueueDriverBeanstalk,
		Host:   "127.0.0.1",
		Port:   addr.Port,
		Tube:   "rates",
	}, testLogger())

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}

func TestDial_BeanstalkRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client, err := Dial(&config.QueueConfig{
		Host:       "127.0.0.1",
		Port:       port,
		Tube:       "rates",
		Connection: config.ConnectionConfig{ConnectionTimeout: time.Second},
	}, testLogger())

	require.Error(t, err)
	assert.Nil(t, client)
}

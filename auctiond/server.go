package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emilyhon/project-auctionable-nfts/clock"
	"github.com/emilyhon/project-auctionable-nfts/core"
)

const connReadTimeout = 30 * time.Second

// LedgerServer owns the ledger and its collaborators and serves the TCP API.
// One JSON request per connection: the client half-closes after writing, the
// server answers with a single JSON response.
//
// The server is the "external sequencer": every ledger operation runs under
// one mutex, so the ledger itself sees a strictly serial stream of
// operations no matter how many connections are in flight.
type LedgerServer struct {
	addr       string
	maxWorkers int
	log        zerolog.Logger

	mu       sync.Mutex
	ledger   *core.Ledger
	wallet   *memWallet
	registry *memRegistry
	metadata *memMetadata
	gate     *operatorGate
	clk      clock.Clock
}

// NewLedgerServer wires a fresh ledger with in-memory collaborators.
func NewLedgerServer(cfg serverConfig, clk clock.Clock, log zerolog.Logger) (*LedgerServer, error) {
	s := &LedgerServer{
		addr:       cfg.listenAddr,
		maxWorkers: cfg.maxWorkers,
		log:        log,
		wallet:     newMemWallet(),
		registry:   newMemRegistry(),
		metadata:   newMemMetadata(),
		gate:       newOperatorGate(cfg.operatorAddr, cfg.operatorToken),
		clk:        clk,
	}
	ledger, err := core.NewLedger(cfg.ledger, clk, s.registry, s.metadata, s.gate, s.wallet, logSink{log: log})
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	s.ledger = ledger
	return s, nil
}

// Start listens on the configured address and serves until the listener
// fails.
func (s *LedgerServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			s.log.Error().Err(err).Msg("close listener")
		}
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Int("max_workers", s.maxWorkers).Msg("auction ledger listening")

	semaphore := make(chan struct{}, s.maxWorkers)
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.log.Error().Err(err).Msg("accept connection")
			continue
		}

		// Acquire a worker slot; reject immediately when the pool is full.
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			s.log.Warn().Msg("worker pool full, rejecting connection")
			if err := conn.Close(); err != nil {
				s.log.Error().Err(err).Msg("close rejected connection")
			}
		}
	}
}

func (s *LedgerServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("panic recovered in connection handler")
		}
		if err := conn.Close(); err != nil {
			s.log.Error().Err(err).Msg("close connection")
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(connReadTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.log.Error().Err(err).Msg("read request")
		return
	}

	response := s.dispatch(buf.Bytes())
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

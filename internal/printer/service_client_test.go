package printer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeService implements the line-delimited JSON protocol on a loopback
// listener. handle maps a call name to its result or error string.
type fakeService struct {
	listener net.Listener
	handle   func(call string, params json.RawMessage) (interface{}, string)

	mu    sync.Mutex
	conns []net.Conn
}

func startFakeService(t *testing.T, handle func(call string, params json.RawMessage) (interface{}, string)) *fakeService {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := &fakeService{listener: listener, handle: handle}
	go svc.serve()
	t.Cleanup(func() { listener.Close() })
	return svc
}

func (s *fakeService) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.serveConn(conn)
	}
}

func (s *fakeService) serveConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req struct {
			ID     int64           `json:"id"`
			Call   string          `json:"call"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}

		result, errMsg := s.handle(req.Call, req.Params)
		resp := map[string]interface{}{"id": req.ID}
		if errMsg != "" {
			resp["error"] = errMsg
		} else if result != nil {
			resp["result"] = result
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			return
		}
	}
}

func (s *fakeService) addr() string {
	return s.listener.Addr().String()
}

// shutdown closes the listener and every accepted connection.
func (s *fakeService) shutdown() {
	s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
}

func newConnectedClient(t *testing.T, svc *fakeService) *ServiceClient {
	t.Helper()
	client := NewServiceClient(svc.addr(), time.Second, zap.NewNop())
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { client.Close() })
	return client
}

func TestServiceClient_ConnectStates(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		return nil, ""
	})

	client := NewServiceClient(svc.addr(), time.Second, zap.NewNop())
	assert.Equal(t, StateIdle, client.State())
	assert.False(t, client.Active())

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, StateConnected, client.State())
	assert.True(t, client.Active())

	// Connecting while connected is a no-op.
	require.NoError(t, client.Connect(context.Background()))

	require.NoError(t, client.Close())
	assert.Equal(t, StateIdle, client.State())
}

func TestServiceClient_ConnectFailure(t *testing.T) {
	client := NewServiceClient("127.0.0.1:1", 50*time.Millisecond, zap.NewNop())

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, client.State())
}

func TestServiceClient_ConcurrentConnectsCollapse(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		return nil, ""
	})
	client := NewServiceClient(svc.addr(), time.Second, zap.NewNop())
	defer client.Close()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, client.Active())
}

func TestServiceClient_Printers(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		if call == "printers.list" {
			return []string{"kitchen", "cash"}, ""
		}
		return nil, "unknown call"
	})
	client := newConnectedClient(t, svc)

	names, err := client.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen", "cash"}, names)
}

func TestServiceClient_Find(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		var p struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(params, &p)
		if p.Query == "kitchen" {
			return "EPSON TM-T20 (kitchen)", ""
		}
		return "", ""
	})
	client := newConnectedClient(t, svc)

	found, err := client.Find(context.Background(), "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "EPSON TM-T20 (kitchen)", found)

	_, err = client.Find(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no printer found under name "ghost"`)
}

func TestServiceClient_ServiceError(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		return nil, "printer busy"
	})
	client := newConnectedClient(t, svc)

	err := client.Print(context.Background(), "kitchen", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer busy")

	// A protocol-level error leaves the connection usable.
	assert.True(t, client.Active())
}

func TestServiceClient_CallWithoutConnection(t *testing.T) {
	client := NewServiceClient("127.0.0.1:1", time.Second, zap.NewNop())

	_, err := client.Printers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestServiceClient_TransportFailureDropsConnection(t *testing.T) {
	svc := startFakeService(t, func(call string, params json.RawMessage) (interface{}, string) {
		return nil, ""
	})
	client := newConnectedClient(t, svc)

	// Kill the service so the next exchange fails mid-read.
	svc.shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.Printers(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, client.State())
	assert.False(t, client.Active())
}

package api

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	server := NewServer(nil, nil, nil, []uint64{1, 2}, logger, 9090)
	assert.NotNil(t, server.server)
	assert.Equal(t, ":9090", server.server.Addr)
	assert.Len(t, server.chains, 2)
	assert.Nil(t, server.Addr())
}

func TestServerStartStop(t *testing.T) {
	t.Run("serves on the bound port", func(t *testing.T) {
		env := setupServer(t)
		require.NoError(t, env.server.Start())
		defer env.server.Stop()

		addr := env.server.Addr().(*net.TCPAddr)
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", addr.Port))
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("port in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer ln.Close()

		server := NewServer(nil, nil, nil, nil, zerolog.Nop(), ln.Addr().(*net.TCPAddr).Port)
		err = server.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to bind")
	})

	t.Run("nil server", func(t *testing.T) {
		server := &Server{logger: zerolog.Nop()}
		err := server.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query server is nil")
		assert.NoError(t, server.Stop())
	})
}

package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAgent answers the few Consul agent endpoints the registry uses.
type fakeAgent struct {
	mu           sync.Mutex
	registered   []api.AgentServiceRegistration
	deregistered []string
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/v1/status/leader":
		_, _ = w.Write([]byte(`"127.0.0.1:8300"`))
	case r.URL.Path == "/v1/agent/service/register":
		var reg api.AgentServiceRegistration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.registered = append(f.registered, reg)
	case strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		f.deregistered = append(f.deregistered, strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestServiceManager_RegisterAndDeregister(t *testing.T) {
	agent := &fakeAgent{}
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	svc := HTTPService("chat-backend", "1.0.0", "10.0.0.7", 8080)
	sm, err := NewServiceManager(&ConsulConfig{Address: strings.TrimPrefix(srv.URL, "http://"), Scheme: "http"}, svc, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sm.Start())
	sm.Stop()

	agent.mu.Lock()
	defer agent.mu.Unlock()
	require.Len(t, agent.registered, 1)
	reg := agent.registered[0]
	assert.Equal(t, "chat-backend-10.0.0.7-8080", reg.ID)
	assert.Equal(t, "chat-backend", reg.Name)
	assert.Equal(t, 8080, reg.Port)
	require.NotNil(t, reg.Check)
	assert.Equal(t, "http://10.0.0.7:8080/health", reg.Check.HTTP)
	assert.Equal(t, "10s", reg.Check.Interval)
	assert.Equal(t, []string{"chat-backend-10.0.0.7-8080"}, agent.deregistered)
}

func TestNewConsulRegistry_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	_, err := NewConsulRegistry(&ConsulConfig{Address: addr, Scheme: "http"})
	assert.Error(t, err)
}

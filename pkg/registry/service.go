package registry

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ServiceManager keeps one service instance registered for the lifetime of
// the process.
type ServiceManager struct {
	registry      *ConsulRegistry
	serviceConfig *ServiceConfig
	log           *zap.Logger
}

func NewServiceManager(consulConfig *ConsulConfig, serviceConfig *ServiceConfig, log *zap.Logger) (*ServiceManager, error) {
	consulRegistry, err := NewConsulRegistry(consulConfig)
	if err != nil {
		return nil, err
	}
	return &ServiceManager{
		registry:      consulRegistry,
		serviceConfig: serviceConfig,
		log:           log,
	}, nil
}

// HTTPService describes an HTTP server reachable at address:port whose
// health endpoint is /health.
func HTTPService(name, version, address string, port int) *ServiceConfig {
	return &ServiceConfig{
		ID:      GenerateServiceID(name, address, port),
		Name:    name,
		Tags:    []string{name, "http", version},
		Address: address,
		Port:    port,
		HealthCheck: &HealthCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", address, port),
			Interval:                       10 * time.Second,
			Timeout:                        3 * time.Second,
			DeregisterCriticalServiceAfter: time.Minute,
		},
	}
}

// Start 注册服务.
func (sm *ServiceManager) Start() error {
	if err := sm.registry.RegisterService(sm.serviceConfig); err != nil {
		return err
	}
	sm.log.Info("service registered",
		zap.String("name", sm.serviceConfig.Name),
		zap.String("id", sm.serviceConfig.ID))
	return nil
}

// Stop 注销服务. Failures are logged only.
func (sm *ServiceManager) Stop() {
	if err := sm.registry.DeregisterService(sm.serviceConfig.ID); err != nil {
		sm.log.Warn("service deregistration failed", zap.Error(err))
		return
	}
	sm.log.Info("service deregistered", zap.String("id", sm.serviceConfig.ID))
}

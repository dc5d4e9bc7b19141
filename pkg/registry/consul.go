package registry

import (
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/consul/api"
)

type ConsulRegistry struct {
	client *api.Client
}

type ConsulConfig struct {
	Address    string
	Scheme     string
	Datacenter string
}

type ServiceConfig struct {
	ID          string
	Name        string
	Tags        []string
	Address     string
	Port        int
	HealthCheck *HealthCheck
}

type HealthCheck struct {
	HTTP                           string
	Interval                       time.Duration
	Timeout                        time.Duration
	DeregisterCriticalServiceAfter time.Duration
}

// NewConsulRegistry 创建Consul客户端 and checks that the agent has a leader.
func NewConsulRegistry(cfg *ConsulConfig) (*ConsulRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Address
	if cfg.Scheme != "" {
		consulConfig.Scheme = cfg.Scheme
	}
	consulConfig.Datacenter = cfg.Datacenter

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("connect consul %s: %w", cfg.Address, err)
	}
	return &ConsulRegistry{client: client}, nil
}

// RegisterService 注册服务, with an HTTP health check when one is given.
func (r *ConsulRegistry) RegisterService(cfg *ServiceConfig) error {
	registration := &api.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Tags:    cfg.Tags,
		Address: cfg.Address,
		Port:    cfg.Port,
	}
	if cfg.HealthCheck != nil {
		registration.Check = &api.AgentServiceCheck{
			HTTP:                           cfg.HealthCheck.HTTP,
			Interval:                       cfg.HealthCheck.Interval.String(),
			Timeout:                        cfg.HealthCheck.Timeout.String(),
			DeregisterCriticalServiceAfter: cfg.HealthCheck.DeregisterCriticalServiceAfter.String(),
		}
	}
	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service %s: %w", cfg.ID, err)
	}
	return nil
}

// DeregisterService 注销服务.
func (r *ConsulRegistry) DeregisterService(serviceID string) error {
	if err := r.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("deregister service %s: %w", serviceID, err)
	}
	return nil
}

// GetLocalIP 获取本机IP地址. No packet is sent; the UDP dial only picks the
// outbound interface.
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// GenerateServiceID 生成服务ID.
func GenerateServiceID(serviceName, address string, port int) string {
	return fmt.Sprintf("%s-%s-%d", serviceName, address, port)
}

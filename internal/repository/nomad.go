package repository

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	nomad "github.com/hashicorp/nomad/api"

	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/util"
)

// Node meta keys read into host ownership fields
const (
	nodeMetaOwner      = "owner"
	nodeMetaDepartment = "department"
	nodeMetaPurpose    = "purpose"
)

const unassigned = "unassigned"

// NodeSource lists Nomad client nodes as inventory hosts
type NodeSource interface {
	// ClusterNames returns the configured cluster keys, sorted
	ClusterNames() []string

	// ListHosts returns one host per client node of the cluster
	ListHosts(ctx context.Context, clusterName string) ([]model.Host, error)
}

// clusterMetadata stores metadata about a cluster
type clusterMetadata struct {
	name   string
	region string
	client *nomad.Client
}

// nomadSource implements NodeSource
type nomadSource struct {
	clusters map[string]*clusterMetadata
	logger   *slog.Logger
}

// NewNomadSource creates a Nomad client for each configured cluster
func NewNomadSource(cfg *config.Config, logger *slog.Logger) (NodeSource, error) {
	clusters := make(map[string]*clusterMetadata)

	for i, cluster := range cfg.Clusters {
		client, err := createNomadClient(cluster)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for cluster at index %d: %w", i, err)
		}

		logger.Info("checking cluster health",
			slog.String("address", cluster.Address),
		)

		if err := checkClusterHealth(client); err != nil {
			if cfg.SkipUnhealthyClusters {
				logger.Warn("skipping unhealthy cluster",
					slog.String("address", cluster.Address),
					slog.String("error", err.Error()),
				)
				continue
			}
			return nil, fmt.Errorf("cluster at %s is not healthy or unreachable: %w", cluster.Address, err)
		}

		// Auto-detect name and region from Nomad API if not specified
		name, region := cluster.Name, cluster.Region
		if name == "" || region == "" {
			detectedName, detectedRegion, err := detectClusterInfo(client)
			if err != nil {
				logger.Warn("failed to auto-detect cluster info, using fallback values",
					slog.String("address", cluster.Address),
					slog.String("error", err.Error()),
				)
				detectedName, detectedRegion = fmt.Sprintf("cluster-%d", i), "global"
			}
			if name == "" {
				name = detectedName
			}
			if region == "" {
				region = detectedRegion
			}
		}

		// Same datacenter name in two regions: use name-region as key
		clusterKey := name
		if _, exists := clusters[name]; exists {
			clusterKey = fmt.Sprintf("%s-%s", name, region)
		}

		logger.Info("initialized cluster",
			slog.String("key", clusterKey),
			slog.String("region", region),
			slog.String("address", cluster.Address),
		)

		clusters[clusterKey] = &clusterMetadata{
			name:   clusterKey,
			region: region,
			client: client,
		}
	}

	if len(clusters) == 0 {
		return nil, fmt.Errorf("no healthy clusters available")
	}

	return &nomadSource{
		clusters: clusters,
		logger:   logger,
	}, nil
}

// createNomadClient creates a Nomad API client for a cluster
func createNomadClient(cluster config.ClusterConfig) (*nomad.Client, error) {
	nomadConfig := nomad.DefaultConfig()
	nomadConfig.Address = cluster.Address
	if cluster.Region != "" {
		nomadConfig.Region = cluster.Region
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cluster.TLS != nil {
		tlsConfig, err := util.LoadTLSConfig(cluster.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	nomadConfig.HttpClient = httpClient

	client, err := nomad.NewClient(nomadConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Nomad client: %w", err)
	}
	return client, nil
}

// checkClusterHealth checks that the cluster has a leader and a healthy agent
func checkClusterHealth(client *nomad.Client) error {
	leader, err := client.Status().Leader()
	if err != nil {
		return fmt.Errorf("failed to get leader: %w", err)
	}
	if leader == "" {
		return fmt.Errorf("no leader elected")
	}

	health, err := client.Agent().Health()
	if err != nil {
		return fmt.Errorf("failed to get agent health: %w", err)
	}
	if health == nil {
		return fmt.Errorf("agent health response is nil")
	}
	if health.Server != nil && !health.Server.Ok {
		return fmt.Errorf("server health check failed")
	}
	return nil
}

// detectClusterInfo queries Nomad API to detect cluster name (datacenter) and region
func detectClusterInfo(client *nomad.Client) (string, string, error) {
	self, err := client.Agent().Self()
	if err != nil {
		return "", "", fmt.Errorf("failed to query agent self: %w", err)
	}
	if self.Config == nil {
		return "", "", fmt.Errorf("config section not found in agent self response")
	}

	datacenter, _ := self.Config["Datacenter"].(string)
	if datacenter == "" {
		return "", "", fmt.Errorf("datacenter not found in config")
	}

	region := "global" // Default Nomad region
	if r, ok := self.Config["Region"].(string); ok && r != "" {
		region = r
	}
	return datacenter, region, nil
}

// ClusterNames returns the configured cluster keys, sorted alphabetically
func (r *nomadSource) ClusterNames() []string {
	names := make([]string, 0, len(r.clusters))
	for name := range r.clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListHosts fetches every client node of the cluster and maps it to a host.
// Nodes without a usable address are skipped.
func (r *nomadSource) ListHosts(ctx context.Context, clusterName string) ([]model.Host, error) {
	meta, ok := r.clusters[clusterName]
	if !ok {
		return nil, fmt.Errorf("cluster %s not found", clusterName)
	}

	q := (&nomad.QueryOptions{}).WithContext(ctx)
	stubs, _, err := meta.client.Nodes().List(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	hosts := make([]model.Host, 0, len(stubs))
	for _, stub := range stubs {
		// Resources and attributes are only on the full node
		node, _, err := meta.client.Nodes().Info(stub.ID, q)
		if err != nil {
			r.logger.Warn("failed to get node info, skipping",
				slog.String("cluster", clusterName),
				slog.String("node_id", stub.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		host, ok := NodeToHost(node, meta.region)
		if !ok {
			r.logger.Warn("node has no address, skipping",
				slog.String("cluster", clusterName),
				slog.String("node_id", node.ID),
			)
			continue
		}
		hosts = append(hosts, host)
	}

	r.logger.Info("listed nomad nodes",
		slog.String("cluster", clusterName),
		slog.String("region", meta.region),
		slog.Int("nodes", len(stubs)),
		slog.Int("hosts", len(hosts)),
	)

	return hosts, nil
}

// NodeToHost maps a Nomad client node to an inventory host. It reports
// false when the node exposes no IP address.
func NodeToHost(node *nomad.Node, region string) (model.Host, bool) {
	ip := node.Attributes["unique.network.ip-address"]
	if ip == "" && node.HTTPAddr != "" {
		if h, _, err := net.SplitHostPort(node.HTTPAddr); err == nil {
			ip = h
		}
	}
	if net.ParseIP(ip) == nil {
		return model.Host{}, false
	}

	host := model.Host{
		Vendor:           nodeVendor(node.Attributes),
		Region:           region,
		IP:               ip,
		OS:               strings.TrimSpace(node.Attributes["os.name"] + " " + node.Attributes["os.version"]),
		OnlineDate:       model.DateOf(time.Now()),
		Owner:            metaOr(node.Meta, nodeMetaOwner, unassigned),
		Department:       metaOr(node.Meta, nodeMetaDepartment, unassigned),
		Purpose:          node.Meta[nodeMetaPurpose],
		EnableStatus:     model.EnableActive,
		ManagementStatus: model.ManagementNormal,
		DeviceStatus:     nodeDeviceStatus(node.Status),
	}
	if node.StatusUpdatedAt > 0 {
		host.OnlineDate = model.DateOf(time.Unix(node.StatusUpdatedAt, 0).UTC())
	}

	if res := node.NodeResources; res != nil {
		host.CPU = int(res.Cpu.TotalCpuCores)
		host.Memory = mbToGB(res.Memory.MemoryMB)
		host.Disk = mbToGB(res.Disk.DiskMB)
		for _, nw := range res.Networks {
			if nw != nil && nw.MBits != nil && *nw.MBits > host.Bandwidth {
				host.Bandwidth = *nw.MBits
			}
		}
	}

	return host, true
}

// nodeVendor derives the cloud vendor from the fingerprinted platform attributes
func nodeVendor(attrs map[string]string) string {
	vendors := []struct{ prefix, name string }{
		{"platform.aws.", "AWS"},
		{"unique.platform.aws.", "AWS"},
		{"platform.gce.", "GCP"},
		{"unique.platform.gce.", "GCP"},
		{"platform.azure.", "Azure"},
		{"unique.platform.azure.", "Azure"},
	}
	for key := range attrs {
		for _, v := range vendors {
			if strings.HasPrefix(key, v.prefix) {
				return v.name
			}
		}
	}
	return "Nomad"
}

func nodeDeviceStatus(status string) model.DeviceStatus {
	if status == nomad.NodeStatusReady {
		return model.DeviceNormal
	}
	return model.DeviceMetricsMissing
}

func metaOr(meta map[string]string, key, fallback string) string {
	if v := meta[key]; v != "" {
		return v
	}
	return fallback
}

// mbToGB rounds up so small nonzero sizes never become 0
func mbToGB(mb int64) int {
	if mb <= 0 {
		return 0
	}
	return int((mb + 1023) / 1024)
}

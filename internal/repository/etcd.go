package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/util"
)

// etcd key layout below the configured prefix
const (
	keyHosts          = "hosts/"
	keyInefficiencies = "inefficiencies/"
	keyMetrics        = "metrics/"
	keySummaries      = "channels/"
	keyDetails        = "channel-details/"
	keyChanges        = "changes/"
	keyChangeSeq      = "change-seq" // last assigned change record sequence
)

const (
	// etcd rejects transactions above 128 operations by default
	etcdBatchSize   = 64
	etcdMaxAttempts = 16
)

// hostEntry is the stored value of a host key. Pos orders hosts: seeded
// hosts use their load index, created hosts a decreasing negative number.
type hostEntry struct {
	Pos  int64      `json:"pos"`
	Host model.Host `json:"host"`
}

// etcdStore keeps every collection under a key prefix in etcd
type etcdStore struct {
	client *clientv3.Client
	prefix string
	logger *slog.Logger
}

// NewEtcdStore connects to the etcd cluster described by cfg
func NewEtcdStore(cfg config.EtcdConfig, logger *slog.Logger) (Store, error) {
	etcdCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	}

	// Configure TLS if provided
	if cfg.TLS != nil {
		tlsConfig, err := util.LoadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		etcdCfg.TLS = tlsConfig
	}

	client, err := clientv3.New(etcdCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	logger.Info("connected to etcd cluster",
		slog.Any("endpoints", cfg.Endpoints),
		slog.String("prefix", cfg.Prefix),
	)

	return &etcdStore{
		client: client,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

func (e *etcdStore) hostKey(ip string) string {
	return e.prefix + keyHosts + ip
}

// seqKey zero-pads seq so lexical key order equals numeric order
func (e *etcdStore) seqKey(collection string, seq int64) string {
	return fmt.Sprintf("%s%s%020d", e.prefix, collection, seq)
}

// readChangeSeq returns the last assigned change sequence and the counter's
// ModRevision, both 0 while the counter does not exist
func (e *etcdStore) readChangeSeq(ctx context.Context) (int64, int64, error) {
	resp, err := e.client.Get(ctx, e.prefix+keyChangeSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read change sequence from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return 0, 0, nil
	}
	last, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse change sequence: %w", err)
	}
	return last, resp.Kvs[0].ModRevision, nil
}

func (e *etcdStore) ListHosts(ctx context.Context) ([]model.Host, error) {
	resp, err := e.client.Get(ctx, e.prefix+keyHosts, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts from etcd: %w", err)
	}

	entries := make([]hostEntry, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var entry hostEntry
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal host %s: %w", kv.Key, err)
		}
		entries = append(entries, entry)
	}
	return orderHosts(entries), nil
}

// orderHosts returns hosts by ascending Pos
func orderHosts(entries []hostEntry) []model.Host {
	slices.SortStableFunc(entries, func(a, b hostEntry) int {
		switch {
		case a.Pos < b.Pos:
			return -1
		case a.Pos > b.Pos:
			return 1
		}
		return strings.Compare(a.Host.IP, b.Host.IP)
	})

	hosts := make([]model.Host, len(entries))
	for i, entry := range entries {
		hosts[i] = entry.Host
	}
	return hosts
}

func (e *etcdStore) GetHost(ctx context.Context, ip string) (model.Host, error) {
	resp, err := e.client.Get(ctx, e.hostKey(ip))
	if err != nil {
		return model.Host{}, fmt.Errorf("failed to read host from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return model.Host{}, ErrHostNotFound
	}

	var entry hostEntry
	if err := json.Unmarshal(resp.Kvs[0].Value, &entry); err != nil {
		return model.Host{}, fmt.Errorf("failed to unmarshal host %s: %w", ip, err)
	}
	return entry.Host, nil
}

func (e *etcdStore) CreateHost(ctx context.Context, host model.Host) error {
	data, err := json.Marshal(hostEntry{Pos: -time.Now().UnixNano(), Host: host})
	if err != nil {
		return fmt.Errorf("failed to marshal host: %w", err)
	}

	key := e.hostKey(host.IP)
	resp, err := e.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(data))).
		Commit()
	if err != nil {
		return fmt.Errorf("failed to write host to etcd: %w", err)
	}
	if !resp.Succeeded {
		return ErrHostExists
	}

	e.logger.Debug("wrote host to etcd", slog.String("ip", host.IP))
	return nil
}

// MutateHost is a compare-and-swap loop on the host key's ModRevision.
// fn may run more than once when writers race on the same host.
func (e *etcdStore) MutateHost(ctx context.Context, ip string, fn MutateFunc) (model.Host, error) {
	key := e.hostKey(ip)

	for attempt := 0; attempt < etcdMaxAttempts; attempt++ {
		resp, err := e.client.Get(ctx, key)
		if err != nil {
			return model.Host{}, fmt.Errorf("failed to read host from etcd: %w", err)
		}
		if len(resp.Kvs) == 0 {
			return model.Host{}, ErrHostNotFound
		}

		kv := resp.Kvs[0]
		var entry hostEntry
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			return model.Host{}, fmt.Errorf("failed to unmarshal host %s: %w", ip, err)
		}

		changes, err := fn(&entry.Host)
		if err != nil {
			return model.Host{}, err
		}
		entry.Host.IP = ip

		cmps := []clientv3.Cmp{clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)}
		var ops []clientv3.Op
		if len(changes) > 0 {
			// The counter is compared too, so concurrent writers never share a sequence
			last, seqRev, err := e.readChangeSeq(ctx)
			if err != nil {
				return model.Host{}, err
			}
			if ops, err = e.changeOps(changes, last+1); err != nil {
				return model.Host{}, err
			}
			cmps = append(cmps, clientv3.Compare(clientv3.ModRevision(e.prefix+keyChangeSeq), "=", seqRev))
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return model.Host{}, fmt.Errorf("failed to marshal host: %w", err)
		}
		ops = append(ops, clientv3.OpPut(key, string(data)))

		txn, err := e.client.Txn(ctx).
			If(cmps...).
			Then(ops...).
			Commit()
		if err != nil {
			return model.Host{}, fmt.Errorf("failed to update host in etcd: %w", err)
		}
		if txn.Succeeded {
			return entry.Host, nil
		}

		e.logger.Debug("host changed concurrently, retrying",
			slog.String("ip", ip),
			slog.Int("attempt", attempt+1),
		)
	}

	return model.Host{}, fmt.Errorf("host %s: gave up after %d concurrent updates", ip, etcdMaxAttempts)
}

// changeOps builds the puts for change records numbered from firstSeq and
// advances the sequence counter past them
func (e *etcdStore) changeOps(changes []model.ChangeRecord, firstSeq int64) ([]clientv3.Op, error) {
	ops := make([]clientv3.Op, 0, len(changes)+2)
	for i, c := range changes {
		c.Seq = firstSeq + int64(i)
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal change record: %w", err)
		}
		ops = append(ops, clientv3.OpPut(e.seqKey(keyChanges, c.Seq), string(data)))
	}
	last := firstSeq + int64(len(changes)) - 1
	ops = append(ops, clientv3.OpPut(e.prefix+keyChangeSeq, strconv.FormatInt(last, 10)))
	return ops, nil
}

// listJSON decodes every value under prefix in key order
func listJSON[T any](ctx context.Context, client *clientv3.Client, prefix string) ([]T, error) {
	resp, err := client.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from etcd: %w", prefix, err)
	}

	out := make([]T, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var v T
		if err := json.Unmarshal(kv.Value, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", kv.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *etcdStore) ListInefficiencies(ctx context.Context) ([]model.InefficiencyRecord, error) {
	return listJSON[model.InefficiencyRecord](ctx, e.client, e.prefix+keyInefficiencies)
}

func (e *etcdStore) ListMetrics(ctx context.Context) ([]model.MetricRecord, error) {
	return listJSON[model.MetricRecord](ctx, e.client, e.prefix+keyMetrics)
}

func (e *etcdStore) ListChannelSummaries(ctx context.Context) ([]model.ChannelSummary, error) {
	return listJSON[model.ChannelSummary](ctx, e.client, e.prefix+keySummaries)
}

func (e *etcdStore) ListChannelDetails(ctx context.Context) ([]model.ChannelDetail, error) {
	return listJSON[model.ChannelDetail](ctx, e.client, e.prefix+keyDetails)
}

func (e *etcdStore) ListChangeRecords(ctx context.Context) ([]model.ChangeRecord, error) {
	return listJSON[model.ChangeRecord](ctx, e.client, e.prefix+keyChanges)
}

// Load replaces everything under the prefix. The delete and the puts run in
// separate transactions, so readers may observe a partially loaded dataset.
func (e *etcdStore) Load(ctx context.Context, ds *model.Dataset) error {
	if err := validateDataset(ds); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	ops, err := e.datasetOps(ds)
	if err != nil {
		return err
	}

	if _, err := e.client.Delete(ctx, e.prefix, clientv3.WithPrefix()); err != nil {
		return fmt.Errorf("failed to clear etcd prefix: %w", err)
	}

	for start := 0; start < len(ops); start += etcdBatchSize {
		end := min(start+etcdBatchSize, len(ops))
		if _, err := e.client.Txn(ctx).Then(ops[start:end]...).Commit(); err != nil {
			return fmt.Errorf("failed to write dataset to etcd: %w", err)
		}
	}

	e.logger.Info("etcd store loaded",
		slog.Int("hosts", len(ds.Hosts)),
		slog.Int("keys", len(ops)),
	)
	return nil
}

func (e *etcdStore) datasetOps(ds *model.Dataset) ([]clientv3.Op, error) {
	var ops []clientv3.Op
	put := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		ops = append(ops, clientv3.OpPut(key, string(data)))
		return nil
	}

	for i, h := range ds.Hosts {
		if err := put(e.hostKey(h.IP), hostEntry{Pos: int64(i), Host: h}); err != nil {
			return nil, err
		}
	}
	for i, r := range ds.Inefficiencies {
		if err := put(e.seqKey(keyInefficiencies, int64(i)), r); err != nil {
			return nil, err
		}
	}
	for i, r := range ds.Metrics {
		if err := put(e.seqKey(keyMetrics, int64(i)), r); err != nil {
			return nil, err
		}
	}
	for i, r := range ds.ChannelSummaries {
		if err := put(e.seqKey(keySummaries, int64(i)), r); err != nil {
			return nil, err
		}
	}
	for i, r := range ds.ChannelDetails {
		if err := put(e.seqKey(keyDetails, int64(i)), r); err != nil {
			return nil, err
		}
	}

	changes, err := e.changeOps(ds.ChangeRecords, 1)
	if err != nil {
		return nil, err
	}
	return append(ops, changes...), nil
}

// Close closes the etcd client connection
func (e *etcdStore) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

package kafka

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PartitionLag is the backlog of one consumer group on one partition.
type PartitionLag struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	High      int64  `json:"high"`
	Committed int64  `json:"committed"`
	Lag       int64  `json:"lag"`
}

// Admin answers offset/lag questions against the cluster. Any call may
// fail on connectivity; callers must treat failure as "unknown", never
// as zero lag.
type Admin struct {
	client *kafka.Client
	log    *zap.Logger
}

func NewAdmin(brokers []string) *Admin {
	return &Admin{
		client: &kafka.Client{
			Addr:    kafka.TCP(brokers...),
			Timeout: 10 * time.Second,
		},
		log: zap.L().With(zap.String("component", "kafka.admin")),
	}
}

func (a *Admin) WithLogger(l *zap.Logger) *Admin {
	if l == nil {
		return a
	}
	cp := *a
	cp.log = l.With(zap.String("component", "kafka.admin"))
	return &cp
}

// Topics lists the non-internal topic names known to the cluster.
func (a *Admin) Topics(ctx context.Context) ([]string, error) {
	meta, err := a.client.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	names := make([]string, 0, len(meta.Topics))
	for _, t := range meta.Topics {
		if t.Internal || t.Error != nil {
			continue
		}
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names, nil
}

// GroupLag reports per-partition lag (high watermark minus committed
// offset) and the total across all listed topics for one consumer group.
func (a *Admin) GroupLag(ctx context.Context, groupID string, topics ...string) ([]PartitionLag, int64, error) {
	meta, err := a.client.Metadata(ctx, &kafka.MetadataRequest{Topics: topics})
	if err != nil {
		return nil, 0, fmt.Errorf("metadata: %w", err)
	}

	offsetReqs := make(map[string][]kafka.OffsetRequest, len(topics))
	fetchTopics := make(map[string][]int, len(topics))
	for _, t := range meta.Topics {
		if t.Error != nil {
			return nil, 0, fmt.Errorf("topic %s: %w", t.Name, t.Error)
		}
		for _, p := range t.Partitions {
			offsetReqs[t.Name] = append(offsetReqs[t.Name],
				kafka.FirstOffsetOf(p.ID), kafka.LastOffsetOf(p.ID))
			fetchTopics[t.Name] = append(fetchTopics[t.Name], p.ID)
		}
	}

	listed, err := a.client.ListOffsets(ctx, &kafka.ListOffsetsRequest{Topics: offsetReqs})
	if err != nil {
		return nil, 0, fmt.Errorf("list offsets: %w", err)
	}

	fetched, err := a.client.OffsetFetch(ctx, &kafka.OffsetFetchRequest{
		GroupID: groupID,
		Topics:  fetchTopics,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("offset fetch: %w", err)
	}
	if fetched.Error != nil {
		return nil, 0, fmt.Errorf("offset fetch: %w", fetched.Error)
	}

	var lags []PartitionLag
	var total int64
	for topic, parts := range listed.Topics {
		committed := make(map[int]int64, len(parts))
		for _, op := range fetched.Topics[topic] {
			if op.Error != nil {
				return nil, 0, fmt.Errorf("offset fetch %s/%d: %w", topic, op.Partition, op.Error)
			}
			committed[op.Partition] = op.CommittedOffset
		}
		for _, po := range parts {
			if po.Error != nil {
				return nil, 0, fmt.Errorf("list offsets %s/%d: %w", topic, po.Partition, po.Error)
			}
			c, ok := committed[po.Partition]
			if !ok {
				c = -1
			}
			pl := partitionLag(topic, po.Partition, po.FirstOffset, po.LastOffset, c)
			lags = append(lags, pl)
			total += pl.Lag
		}
	}

	sort.Slice(lags, func(i, j int) bool {
		if lags[i].Topic != lags[j].Topic {
			return lags[i].Topic < lags[j].Topic
		}
		return lags[i].Partition < lags[j].Partition
	})
	return lags, total, nil
}

// partitionLag computes lag for one partition. A group with no committed
// offset (Kafka reports -1) is behind by everything still retained, so
// the low watermark stands in for the committed position.
func partitionLag(topic string, partition int, low, high, committed int64) PartitionLag {
	if committed < 0 {
		committed = low
	}
	lag := high - committed
	if lag < 0 {
		lag = 0
	}
	return PartitionLag{
		Topic:     topic,
		Partition: partition,
		High:      high,
		Committed: committed,
		Lag:       lag,
	}
}

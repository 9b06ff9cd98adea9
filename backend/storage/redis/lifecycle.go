// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DeletedQueue is a list consumers BLPOP for durable handling of deleted groups.
	DeletedQueue = "group:deleted:queue"
	// DeletedChannel carries the same events for live subscribers.
	DeletedChannel = "group:deleted"

	queueTTL = 7 * 24 * time.Hour
)

// GroupsDeletedEvent tells other systems (file storage, search indexes) which
// groups are gone.
type GroupsDeletedEvent struct {
	Type      string    `json:"type"`
	AppID     string    `json:"app_id"`
	GroupIDs  []string  `json:"group_ids"`
	DeletedAt time.Time `json:"deleted_at"`
}

type LifecyclePublisher struct {
	rdb     *redis.Client
	queue   string
	channel string
	now     func() time.Time
}

func NewLifecyclePublisher(rdb *redis.Client, channel string) *LifecyclePublisher {
	queue := DeletedQueue
	if channel == "" {
		channel = DeletedChannel
	} else {
		queue = channel + ":queue"
	}
	return &LifecyclePublisher{rdb: rdb, queue: queue, channel: channel, now: time.Now}
}

func (p *LifecyclePublisher) GroupsDeleted(ctx context.Context, appID string, groupIDs []string) error {
	data, err := json.Marshal(GroupsDeletedEvent{
		Type:      "groups_deleted",
		AppID:     appID,
		GroupIDs:  groupIDs,
		DeletedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.RPush(ctx, p.queue, data)
	pipe.Expire(ctx, p.queue, queueTTL)
	pipe.Publish(ctx, p.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish deleted groups: %w", err)
	}
	return nil
}

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/fedflow/types"
)

// TestProperty_Stats_CountersMatchAppliedIncrements 验证统计快照的一致性
// For any 增量操作序列，每个计数器单调不减，任意时刻的值等于该操作已施加的次数，
// 且每次更新同步发布一份完整快照。
func TestProperty_Stats_CountersMatchAppliedIncrements(t *testing.T) {
	type counterOp struct {
		name  string
		apply func(types.SessionStats) types.SessionStats
		read  func(types.SessionStats) int64
	}
	ops := []counterOp{
		{"messages_received", types.SessionStats.IncrementMessagesReceived, func(s types.SessionStats) int64 { return s.MessagesReceived }},
		{"messages_sent", types.SessionStats.IncrementMessagesSent, func(s types.SessionStats) int64 { return s.MessagesSent }},
		{"train_ops", types.SessionStats.IncrementTrainOps, func(s types.SessionStats) int64 { return s.TrainOps }},
		{"evaluate_ops", types.SessionStats.IncrementEvaluateOps, func(s types.SessionStats) int64 { return s.EvaluateOps }},
		{"weights_received", types.SessionStats.IncrementWeightsReceived, func(s types.SessionStats) int64 { return s.WeightsReceived }},
		{"weights_sent", types.SessionStats.IncrementWeightsSent, func(s types.SessionStats) int64 { return s.WeightsSent }},
		{"health_checks", types.SessionStats.IncrementHealthChecks, func(s types.SessionStats) int64 { return s.HealthChecks }},
		{"errors", types.SessionStats.IncrementErrors, func(s types.SessionStats) int64 { return s.Errors }},
		{"connection_attempts", types.SessionStats.IncrementConnectionAttempts, func(s types.SessionStats) int64 { return s.ConnectionAttempts }},
	}

	rapid.Check(t, func(rt *rapid.T) {
		var published []types.SessionStats
		slot := newStatsSlot(func(s types.SessionStats) { published = append(published, s) })

		steps := rapid.SliceOfN(rapid.IntRange(0, len(ops)-1), 0, 200).Draw(rt, "steps")

		applied := make([]int64, len(ops))
		prev := slot.Load()
		for _, idx := range steps {
			slot.update(ops[idx].apply)
			applied[idx]++

			next := slot.Load()
			for i, op := range ops {
				assert.GreaterOrEqual(rt, op.read(next), op.read(prev), "counter %s must not decrease", op.name)
				assert.Equal(rt, applied[i], op.read(next), "counter %s drifted from applied increments", op.name)
			}
			prev = next
		}

		require.Len(rt, published, len(steps))
		if len(published) > 0 {
			assert.Equal(rt, slot.Load(), published[len(published)-1])
		}

		// 新会话从零值快照重新开始
		slot.update(func(types.SessionStats) types.SessionStats {
			return types.SessionStats{}.StartSession()
		})
		reset := slot.Load()
		for _, op := range ops {
			assert.Zero(rt, op.read(reset), "counter %s must reset", op.name)
		}
		assert.False(rt, reset.SessionStartTime.IsZero())
	})
}

// TestProperty_Stats_ActivityTimestampNeverRegresses 验证活动时间戳
// For any 更新序列，LastActivityTime 单调不减；连接尝试不算会话活动，不推进时间戳。
func TestProperty_Stats_ActivityTimestampNeverRegresses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		slot := newStatsSlot(nil)
		slot.update(func(types.SessionStats) types.SessionStats {
			return types.SessionStats{}.StartSession()
		})

		steps := rapid.SliceOfN(rapid.Bool(), 1, 50).Draw(rt, "steps")

		prev := slot.Load()
		for _, activity := range steps {
			if activity {
				slot.update(types.SessionStats.IncrementMessagesReceived)
			} else {
				slot.update(types.SessionStats.IncrementConnectionAttempts)
			}

			next := slot.Load()
			assert.False(rt, next.LastActivityTime.Before(prev.LastActivityTime),
				"activity timestamp went backwards")
			if !activity {
				assert.Equal(rt, prev.LastActivityTime, next.LastActivityTime,
					"connection attempts must not count as activity")
			}
			prev = next
		}
	})
}

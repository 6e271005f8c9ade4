package types

import "time"

// SessionStats is an immutable snapshot of per-session counters. Methods
// return a new snapshot and never modify the receiver, so a published value
// can be read without locking. A fresh zero-value snapshot is created each
// time a session starts.
type SessionStats struct {
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	TrainOps           int64 `json:"train_ops"`
	EvaluateOps        int64 `json:"evaluate_ops"`
	WeightsReceived    int64 `json:"weights_received"`
	WeightsSent        int64 `json:"weights_sent"`
	HealthChecks       int64 `json:"health_checks"`
	Errors             int64 `json:"errors"`
	ConnectionAttempts int64 `json:"connection_attempts"`

	SessionStartTime time.Time `json:"session_start_time"`
	LastActivityTime time.Time `json:"last_activity_time"`
}

// StartSession stamps the session start and last activity timestamps.
func (s SessionStats) StartSession() SessionStats {
	now := time.Now()
	s.SessionStartTime = now
	s.LastActivityTime = now
	return s
}

// IncrementMessagesReceived counts one inbound message.
func (s SessionStats) IncrementMessagesReceived() SessionStats {
	s.MessagesReceived++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementMessagesSent counts one outbound message.
func (s SessionStats) IncrementMessagesSent() SessionStats {
	s.MessagesSent++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementTrainOps counts one completed train operation.
func (s SessionStats) IncrementTrainOps() SessionStats {
	s.TrainOps++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementEvaluateOps counts one completed evaluate operation.
func (s SessionStats) IncrementEvaluateOps() SessionStats {
	s.EvaluateOps++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementWeightsReceived counts one applied send-weights instruction.
func (s SessionStats) IncrementWeightsReceived() SessionStats {
	s.WeightsReceived++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementWeightsSent counts one answered get-weights instruction.
func (s SessionStats) IncrementWeightsSent() SessionStats {
	s.WeightsSent++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementHealthChecks counts one answered health ping.
func (s SessionStats) IncrementHealthChecks() SessionStats {
	s.HealthChecks++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementErrors counts one reported error.
func (s SessionStats) IncrementErrors() SessionStats {
	s.Errors++
	s.LastActivityTime = time.Now()
	return s
}

// IncrementConnectionAttempts counts one connection attempt. Attempts do not
// stamp the activity timestamp: a reconnect storm is not session activity.
func (s SessionStats) IncrementConnectionAttempts() SessionStats {
	s.ConnectionAttempts++
	return s
}

// SessionDuration reports how long the session has been active. The second
// return value is false when the session has not started. A snapshot with a
// last-activity timestamp measures up to that point, otherwise up to now.
func (s SessionStats) SessionDuration() (time.Duration, bool) {
	if s.SessionStartTime.IsZero() {
		return 0, false
	}
	if s.LastActivityTime.IsZero() {
		return time.Since(s.SessionStartTime), true
	}
	return s.LastActivityTime.Sub(s.SessionStartTime), true
}

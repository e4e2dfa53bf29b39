package websocket

import (
	"encoding/json"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

type MessageType string

const (
	MessageTypeHealth          MessageType = "health"
	MessageTypeAlert           MessageType = "alert"
	MessageTypeIncident        MessageType = "incident"
	MessageTypeScalingDecision MessageType = "scaling_decision"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Service   string      `json:"service"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewMessage(msgType MessageType, service string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Service:   service,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type HealthData struct {
	OverallScore float64 `json:"overall_score"`
	Status       string  `json:"status"`
}

type AlertData struct {
	AlertID  string `json:"alert_id"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Metric   string `json:"metric"`
}

type ScalingDecisionData struct {
	CurrentInstances int     `json:"current_instances"`
	TargetInstances  int     `json:"target_instances"`
	Direction        string  `json:"direction"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

func BroadcastHealth(hub *Hub, score *models.ServiceHealthScore) {
	data := HealthData{
		OverallScore: score.OverallScore,
		Status:       string(score.Status),
	}
	msg := NewMessage(MessageTypeHealth, score.ServiceName, data)
	hub.BroadcastToService(score.ServiceName, msg.JSON())
}

func BroadcastAlert(hub *Hub, alert *models.Alert) {
	data := AlertData{
		AlertID:  alert.ID,
		Type:     string(alert.Type),
		Severity: string(alert.Severity),
		Metric:   alert.MetricName,
	}
	msg := NewMessage(MessageTypeAlert, alert.ServiceName, data)
	hub.BroadcastToService(alert.ServiceName, msg.JSON())
}

func BroadcastScalingDecision(hub *Hub, decision *models.ScalingDecision) {
	data := ScalingDecisionData{
		CurrentInstances: decision.CurrentInstances,
		TargetInstances:  decision.TargetInstances,
		Direction:        string(decision.Direction),
		Confidence:       decision.Confidence,
		Reason:           decision.Reason,
	}
	msg := NewMessage(MessageTypeScalingDecision, decision.ServiceName, data)
	hub.BroadcastToService(decision.ServiceName, msg.JSON())
}

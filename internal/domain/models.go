// Package domain defines the persistence model for service orders and the
// wire types exchanged with the chat platform. The ServiceOrder type is
// mapped with GORM and forms the core data layer of the gateway.
package domain

import (
	"encoding/json"
	"time"
)

// Service-order lifecycle states. A record is created as StatusPending and
// transitions to StatusOpen once the external ticketing API accepts it.
// The Portuguese literals match the legacy `ordens_servico_wpp` table.
const (
	StatusPending = "pendente"
	StatusOpen    = "aberta"
)

// ServiceOrder represents a durable service-order record produced by a
// completed conversational submission.
//
// Fields:
//   - ID: store-assigned integer primary key.
//   - DataJSON: the completed OrderPayload serialized as JSON.
//   - Status: "pendente" until external submission succeeds, then "aberta".
//   - ExternalID: identifier returned by the external ticketing system
//     (column id_os); nil while the record is pending.
//   - CreatedAt: timestamp managed by GORM.
type ServiceOrder struct {
	ID         uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	DataJSON   string    `json:"data_json"   gorm:"column:data_json;type:text;not null"`
	Status     string    `json:"status"      gorm:"type:varchar(16);not null;index;check:status IN ('pendente','aberta')"`
	ExternalID *string   `json:"id_os,omitempty" gorm:"column:id_os;type:varchar(64)"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for ServiceOrder.
func (ServiceOrder) TableName() string { return "ordens_servico_wpp" }

// Payload decodes the stored DataJSON into an OrderPayload. Records written
// by this application always decode cleanly; an error indicates a hand-edited
// or corrupted row.
func (o *ServiceOrder) Payload() (OrderPayload, error) {
	var p OrderPayload
	err := json.Unmarshal([]byte(o.DataJSON), &p)
	return p, err
}

// OrderPayload is the completed conversational submission persisted into
// DataJSON and forwarded to the external ticketing API. Field names match
// the legacy JSON document shape.
type OrderPayload struct {
	// Nome is the sender's display name as reported by the chat platform.
	Nome string `json:"nome"`
	// WhatsApp is the sender's numeric identity (JID digits prefix).
	WhatsApp string `json:"whatsapp"`
	// CSID is the application-level correlation identifier supplied in the
	// trigger message; duplicate submissions are detected against it.
	CSID string `json:"cs_id"`
	// NumRota is the route number supplied in the trigger message.
	NumRota string `json:"num_rota"`
	// DescricaoProblema is the free-text problem description attached by the
	// follow-up message; nil until the submission is completed.
	DescricaoProblema *string `json:"descricao_problema"`
}

// Encode serializes the payload as JSON for storage in DataJSON.
func (p OrderPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package domain

import (
	"strings"
	"testing"
)

func TestOrderPayload_EncodeAndDecode(t *testing.T) {
	desc := "Router down"
	p := OrderPayload{
		Nome:              "Ana",
		WhatsApp:          "5511999",
		CSID:              "CS123",
		NumRota:           "R45",
		DescricaoProblema: &desc,
	}

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Legacy consumers read these exact keys.
	for _, key := range []string{`"nome"`, `"whatsapp"`, `"cs_id"`, `"num_rota"`, `"descricao_problema"`} {
		if !strings.Contains(data, key) {
			t.Fatalf("encoded payload missing %s: %s", key, data)
		}
	}

	o := ServiceOrder{DataJSON: data}
	got, err := o.Payload()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CSID != "CS123" || got.WhatsApp != "5511999" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.DescricaoProblema == nil || *got.DescricaoProblema != "Router down" {
		t.Fatalf("description lost: %+v", got.DescricaoProblema)
	}
}

func TestOrderPayload_NilDescriptionEncodesAsNull(t *testing.T) {
	p := OrderPayload{Nome: "Ana", WhatsApp: "5511999", CSID: "CS123", NumRota: "R45"}
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(data, `"descricao_problema":null`) {
		t.Fatalf("pending payload must carry an explicit null description: %s", data)
	}
}

func TestServiceOrder_Payload_Corrupted(t *testing.T) {
	o := ServiceOrder{DataJSON: "{not json"}
	if _, err := o.Payload(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestServiceOrder_TableName(t *testing.T) {
	if got := (ServiceOrder{}).TableName(); got != "ordens_servico_wpp" {
		t.Fatalf("unexpected table name %q", got)
	}
}

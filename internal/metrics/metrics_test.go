package metrics

import "testing"

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init() // must not panic on double registration
}

func TestRecordersDoNotPanic(t *testing.T) {
	RecordStoreMutation("create_entry", "ok")
	RecordForwardAuth("traefik", "allow")
	RecordOIDCLogin("success")
}

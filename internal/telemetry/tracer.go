package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for coordinator/storage-node/client spans. Adapted from
// the teacher's NFS/SMB-oriented attribute set down to this system's own
// domain: wire commands, filenames, sentence/word indices, usernames, and
// the owning storage node — mostly under a "doc.*" prefix; the
// protocol-specific NFS/SMB/cache/S3 keys are dropped (nothing in this system
// produces those spans).
const (
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	AttrProtocol  = "protocol.name" // always "docstore" here
	AttrOperation = "doc.operation" // CREATE, READ, WRITE, ...
	AttrFilename  = "doc.filename"
	AttrUsername  = "doc.username"
	AttrStatus    = "doc.status"    // wire.Status string
	AttrStatusMsg = "doc.status_msg"

	AttrSentenceIndex = "doc.sentence_index"
	AttrWordIndex     = "doc.word_index"

	AttrStorageNodeID   = "doc.storage_node_id"
	AttrStorageNodeAddr = "doc.storage_node_addr"

	AttrLockHolder = "doc.lock_holder"
	AttrCorrID     = "doc.correlation_id"
)

// Span names. Format: <component>.<operation>.
const (
	SpanCoordinatorRequest  = "coordinator.request"
	SpanCoordinatorForward  = "coordinator.forward" // C -> S dialogue leg
	SpanStorageRequest      = "storage.request"
	SpanStorageWriteSession = "storage.write_session"
	SpanClientRequest       = "client.request"

	SpanACLMutate = "coordinator.acl_mutate" // ADDACCESS/REMACCESS two-phase protocol
)

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for the full client address (ip:port).
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Operation returns an attribute for the wire command name (e.g. "WRITE").
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Filename returns an attribute for the file a request targets.
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// Username returns an attribute for the requesting user.
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Status returns an attribute for a response's wire status string.
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// StatusMsg returns an attribute for a response's data/message field.
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// SentenceIndex returns an attribute for a WRITE/ETIRW sentence index.
func SentenceIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrSentenceIndex, idx)
}

// WordIndex returns an attribute for a WRITE word-update word index.
func WordIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrWordIndex, idx)
}

// StorageNodeAddr returns an attribute for the storage node a request was
// routed to.
func StorageNodeAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrStorageNodeAddr, addr)
}

// LockHolder returns an attribute for the username currently holding a
// sentence lock, when a LOCKED response needs to explain why.
func LockHolder(username string) attribute.KeyValue {
	return attribute.String(AttrLockHolder, username)
}

// CorrelationID returns an attribute tying a span to the request's
// correlation ID (the same value internal/log attaches to log lines).
func CorrelationID(id string) attribute.KeyValue {
	return attribute.String(AttrCorrID, id)
}

// StartCoordinatorSpan starts a span for one coordinator-handled request.
func StartCoordinatorSpan(ctx context.Context, op, username, filename string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanCoordinatorRequest, trace.WithAttributes(
		attribute.String(AttrProtocol, "docstore"),
		Operation(op),
		Username(username),
		Filename(filename),
	))
}

// StartForwardSpan starts a span for the coordinator's forwarding leg to a
// storage node — the round trip that stalls the single-threaded event loop
// until it completes.
func StartForwardSpan(ctx context.Context, op, storageAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanCoordinatorForward, trace.WithAttributes(
		Operation(op),
		StorageNodeAddr(storageAddr),
	))
}

// StartStorageSpan starts a span for one storage-node worker request.
func StartStorageSpan(ctx context.Context, op, username, filename string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanStorageRequest, trace.WithAttributes(
		Operation(op),
		Username(username),
		Filename(filename),
	))
}

// StartACLMutateSpan starts a span covering one ADDACCESS/REMACCESS
// snapshot-mutate-push-rollback sequence.
func StartACLMutateSpan(ctx context.Context, op, filename, targetUser string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanACLMutate, trace.WithAttributes(
		Operation(op),
		Filename(filename),
		attribute.String("doc.target_user", targetUser),
	))
}

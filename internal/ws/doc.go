// Package ws streams store statistics and per-session analysis events to
// WebSocket subscribers.
//
// Every subscriber receives {"event":"stats","data":Stats} on connect and
// then on each tick of the hub's interval. A subscriber that connects with
// ?session=<id> also receives {"event":"analysis","data":AnalysisResult}
// for each analysis saved under that session, and for no other session.
//
// The upgrader accepts all origins; restrict them at the reverse proxy.
package ws

// Package api implements the HTTP REST surface over the session store and
// the scoring engine.
//
// New(deps) returns an http.Handler (a chi router) that serves:
//
//	GET    /healthz                        liveness, never authenticated
//	GET    /metrics                        Prometheus text exposition
//	POST   /api/v1/sessions                create a session {user_id?, language?}
//	GET    /api/v1/sessions/{id}           read a session (extends its lifetime)
//	PATCH  /api/v1/sessions/{id}           update user_id / language
//	DELETE /api/v1/sessions/{id}           delete a session and its analyses
//	GET    /api/v1/sessions/{id}/analyses  the session's analyses, oldest first
//	POST   /api/v1/sessions/{id}/analyses  analyse {url}, save, evaluate alerts
//	GET    /api/v1/analyses/{id}           one analysis with recommendations
//	DELETE /api/v1/analyses/{id}           delete one analysis
//	GET    /api/v1/stats                   store statistics
//	GET    /api/v1/alerts                  firing and recently resolved alerts
//	GET    /ws/stats[?session={id}]        WebSocket stream of statistics and that session's analyses
//
// All JSON endpoints respond with Content-Type: application/json and an
// {"error": "..."} body on failure. /api/v1 and /ws are guarded by the API
// key middleware when auth mode is apikey.
package api

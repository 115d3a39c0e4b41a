// Package alerts evaluates threshold rules against every saved analysis and
// delivers webhook notifications when a rule fires for a domain or stops
// firing on a later analysis of it. Webhooks go to Teams, Slack or generic
// HTTP targets.
package alerts

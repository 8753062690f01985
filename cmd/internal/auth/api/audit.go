package authapi

import (
	"net"
	"strings"
)

// Audit events go to the structured log. The refresh failure events matter
// most: the HTTP response for a missing session and for a detected reuse is
// identical on purpose, so these records are the only place operators can
// tell the two apart.

func (h *Handler) auditLoginFailed(ip net.IP, ua, contact, reason string) {
	h.log.Warn("auth.login.failed",
		"contact", contact, "reason", reason, "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditLoginSuccess(ip net.IP, ua, userID, sessionID string) {
	h.log.Info("auth.login.success",
		"user_id", userID, "session_id", sessionID, "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditRefreshSuccess(ip net.IP, ua, sessionID string) {
	h.log.Info("auth.refresh.success",
		"session_id", sessionID, "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditRefreshUnknown(ip net.IP, ua string) {
	h.log.Warn("auth.refresh.unknown_token", "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditRefreshReuse(ip net.IP, ua string) {
	h.log.Warn("auth.refresh.reuse_detected", "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditLogout(ip net.IP, ua, sessionID string) {
	h.log.Info("auth.logout", "session_id", sessionID, "ip", ipString(ip), "ua", ua)
}

func (h *Handler) auditLogoutAll(ip net.IP, ua, contact string) {
	h.log.Info("auth.logout_all", "contact", contact, "ip", ipString(ip), "ua", ua)
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return strings.TrimSpace(ip.String())
}

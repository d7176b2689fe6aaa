package server

import (
	"net/http"

	"example.com/sqliteblog/internal/views"
	"github.com/gorilla/mux"
)

// stubPaths are answered with a static page echoing the path. They carry no logic.
var stubPaths = []string{
	"/cgi-bin/cm/secLoginPolicy/w_loginPolicy.html",
	"/cgi-bin/cm/SNMPAgnt/w_g3admin.html",
	"/cgi-bin/cm/secProtcls/w_protocols.html",
	"/cgi-bin/cm/secFirewall/w_lan_sec.html",
	"/cgi-bin/cm/SNMPTrap/w_configtrap.html",
	"/cgi-bin/cm/alrmSNMPAgents/w_SNMPAgents.html",
	"/cgi-bin/cm/secServerAccess/w_serverAccess.html",
	"/cgi-bin/cm/secFirewall/w_firewall.html",
	"/cgi-bin/cm/alrmSNMPTraps/w_SNMPTraps.html",
	"/cgi-bin/cm/diagNetworkTimeSync/w_networkTimeSync.html",
	"/cgi-bin/cm/secModem/w_m_enable.html",
	"/cgi-bin/cm/secSyslog/w_syslogServer.html",
	"/cgi-bin/cm/filters/w_filtersadmin.html",
}

func (s *Server) handleStubs(r *mux.Router) {
	for _, p := range stubPaths {
		path := p
		r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
			data := page(req)
			data.Path = path
			s.render(w, req, http.StatusOK, views.Stub, data)
		}).Methods(http.MethodGet, http.MethodPost)
	}
}

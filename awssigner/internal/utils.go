package awssigner

import (
	"net/http"
	"strings"
)

// StripExcessSpaces collapses sequential spaces in a header value and trims
// leading and trailing ones, as required by canonical header formatting.
func StripExcessSpaces(str string) string {
	var j, k, l, m, spaces int
	// Trim trailing spaces
	for j = len(str) - 1; j >= 0 && str[j] == ' '; j-- {
	}

	// Trim leading spaces
	for k = 0; k < j && str[k] == ' '; k++ {
	}
	str = str[k : j+1]

	// Strip multiple spaces.
	j = strings.Index(str, doubleSpace)
	if j < 0 {
		return str
	}

	buf := []byte(str)
	for k, m, l = j, j, len(buf); k < l; k++ {
		if buf[k] == ' ' {
			if spaces == 0 {
				// First space.
				buf[m] = buf[k]
				m++
			}
			spaces++
		} else {
			// End of multiple spaces.
			spaces = 0
			buf[m] = buf[k]
			m++
		}
	}

	return string(buf[:m])
}

// HostForHeader returns the value to be signed as the host header, stripping
// the port when it is the default for the request scheme.
func HostForHeader(req *http.Request) string {
	host := req.URL.Host
	if len(req.Host) > 0 {
		host = req.Host
	}

	h, port, ok := splitHostPort(host)
	if !ok || port == "" {
		return host
	}

	switch {
	case req.URL.Scheme == "http" && port == "80":
		return h
	case req.URL.Scheme == "https" && port == "443":
		return h
	}
	return host
}

// splitHostPort is a lenient net.SplitHostPort: a missing port is not an
// error, the host is returned as is.
func splitHostPort(hostport string) (host, port string, ok bool) {
	i := strings.LastIndexByte(hostport, ':')
	if i < 0 {
		return hostport, "", true
	}
	if strings.HasPrefix(hostport, "[") {
		// bracketed IPv6 literal, the colon may belong to the address
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return hostport, "", false
		}
		if end+1 == len(hostport) {
			return hostport, "", true
		}
		if hostport[end+1] != ':' {
			return hostport, "", false
		}
		return hostport[:end+1], hostport[end+2:], true
	}
	if strings.Count(hostport, ":") > 1 {
		// unbracketed IPv6 literal without port
		return hostport, "", true
	}
	return hostport[:i], hostport[i+1:], true
}

package server

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"sync"
)

// --- IP 过滤 ---

// IPFilter 按 IP 或网段放行/拒绝连接，并在可信代理后面解析真实客户端地址
type IPFilter struct {
	mu      sync.RWMutex
	allowed []netip.Prefix
	blocked []netip.Prefix
	proxies []netip.Prefix
}

// parsePrefix 接受 "1.2.3.4"、"::1" 或 "10.0.0.0/8"
func parsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("parse network %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parse ip %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func parsePrefixes(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		p, err := parsePrefix(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// NewIPFilter 创建 IP 过滤器；allowed 非空时只放行其中的地址
func NewIPFilter(allowed, blocked, trustedProxies []string) (*IPFilter, error) {
	f := &IPFilter{}
	var err error
	if f.allowed, err = parsePrefixes(allowed); err != nil {
		return nil, err
	}
	if f.blocked, err = parsePrefixes(blocked); err != nil {
		return nil, err
	}
	if f.proxies, err = parsePrefixes(trustedProxies); err != nil {
		return nil, err
	}
	return f, nil
}

func containsAddr(list []netip.Prefix, addr netip.Addr) bool {
	return slices.ContainsFunc(list, func(p netip.Prefix) bool { return p.Contains(addr) })
}

// Block 封禁 IP 或网段
func (f *IPFilter) Block(entry string) error {
	p, err := parsePrefix(entry)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.blocked, p) {
		f.blocked = append(f.blocked, p)
	}
	return nil
}

// Unblock 解除封禁，entry 需与 Block 时一致
func (f *IPFilter) Unblock(entry string) error {
	p, err := parsePrefix(entry)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = slices.DeleteFunc(f.blocked, func(b netip.Prefix) bool { return b == p })
	return nil
}

// IsAllowed 黑名单始终拒绝；有白名单时只放行白名单；无法解析的地址一律拒绝
func (f *IPFilter) IsAllowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if containsAddr(f.blocked, addr) {
		return false
	}
	return len(f.allowed) == 0 || containsAddr(f.allowed, addr)
}

// ClientIP 返回请求的真实客户端 IP。只有直连地址是可信代理时才读取
// X-Forwarded-For，并从右往左跳过可信代理，取第一个不可信的地址。
func (f *IPFilter) ClientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return remote
	}
	addr = addr.Unmap()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if !containsAddr(f.proxies, addr) {
		return addr.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		hop = hop.Unmap()
		if !containsAddr(f.proxies, hop) {
			return hop.String()
		}
	}
	if xr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xr.Unmap().String()
	}
	return addr.String()
}

// --- 来源验证 ---

// OriginChecker 按 Origin 的主机名验证浏览器来源。
// 支持 "*"（全部放行）、"example.com"、"https://example.com:8443" 和 "*.example.com"。
type OriginChecker struct {
	allowAll bool
	exact    map[string]bool // scheme://host[:port] 或 host
	suffixes []string        // ".example.com"
}

// NewOriginChecker 创建来源验证器
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{exact: make(map[string]bool)}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "*":
			oc.allowAll = true
		case strings.HasPrefix(o, "*."):
			oc.suffixes = append(oc.suffixes, o[1:])
		case o != "":
			oc.exact[strings.TrimSuffix(o, "/")] = true
		}
	}
	return oc
}

// Check 终端客户端不带 Origin，直接放行
func (oc *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if oc.allowAll || origin == "" {
		return true
	}
	u, err := url.Parse(strings.ToLower(origin))
	if err != nil || u.Host == "" {
		return false
	}
	if oc.exact[u.Scheme+"://"+u.Host] || oc.exact[u.Hostname()] {
		return true
	}
	host := u.Hostname()
	return slices.ContainsFunc(oc.suffixes, func(s string) bool { return strings.HasSuffix(host, s) })
}

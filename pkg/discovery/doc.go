// Package discovery implements mDNS/DNS-SD discovery of boxchat peers.
//
// # Service (_boxchat._tcp)
//
// A listening peer advertises one instance on the local link. The instance
// name is the user's chat name (truncated to the 63-byte DNS label limit).
// TXT records:
//   - name: chat name as typed, untruncated
//   - ver: protocol version, currently "1"
//
// Browsers skip instances with a missing or unsupported version. An instance
// seen on several interfaces is reported once, with its addresses merged.
//
// Discovery only finds peers. Keys are exchanged in-band after connecting,
// so nothing in the TXT records is trusted.
package discovery

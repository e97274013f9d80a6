package discovery

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodePeerTXT creates TXT records for a peer advertisement.
func EncodePeerTXT(info *PeerInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeyName:    info.Name,
		TXTKeyVersion: ProtocolVersion,
	}
}

// DecodePeerTXT parses TXT records from a peer advertisement and returns the
// chat name and version.
func DecodePeerTXT(txt TXTRecordMap) (name, version string, err error) {
	version, ok := txt[TXTKeyVersion]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if version != ProtocolVersion {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	name, ok = txt[TXTKeyName]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyName)
	}
	if len(name) > MaxNameLen {
		return "", "", fmt.Errorf("%w: name too long", ErrInvalidTXTRecord)
	}
	return name, version, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
// Keys are case-insensitive and the first occurrence wins.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, _ := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		key = strings.ToLower(key)
		if _, dup := txt[key]; dup {
			continue
		}
		txt[key] = value
	}
	return txt
}

// InstanceName returns a valid instance name for a chat name.
func InstanceName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "boxchat"
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

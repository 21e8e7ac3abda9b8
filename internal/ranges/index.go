package ranges

import (
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"
)

type indexEntry struct {
	network  net.IPNet
	prefixes []Prefix
}

func (e *indexEntry) Network() net.IPNet {
	return e.network
}

// Index answers which published prefixes contain an address.
type Index struct {
	ranger cidranger.Ranger
	size   int
}

func NewIndex(prefixes []Prefix) (*Index, error) {
	ranger := cidranger.NewPCTrieRanger()
	entries := make(map[string]*indexEntry)
	var order []string
	for _, prefix := range prefixes {
		entry, ok := entries[prefix.CIDR]
		if !ok {
			_, network, err := net.ParseCIDR(prefix.CIDR)
			if err != nil {
				return nil, fmt.Errorf("error indexing prefix %s: %w", prefix.CIDR, err)
			}
			entry = &indexEntry{network: *network}
			entries[prefix.CIDR] = entry
			order = append(order, prefix.CIDR)
		}
		entry.prefixes = append(entry.prefixes, prefix)
	}
	for _, cidr := range order {
		if err := ranger.Insert(entries[cidr]); err != nil {
			return nil, fmt.Errorf("error indexing prefix %s: %w", cidr, err)
		}
	}
	return &Index{ranger: ranger, size: len(order)}, nil
}

// Lookup returns every prefix containing ip.
func (idx *Index) Lookup(ip net.IP) ([]Prefix, error) {
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address")
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	networks, err := idx.ranger.ContainingNetworks(ip)
	if err != nil {
		return nil, err
	}
	var matches []Prefix
	for _, network := range networks {
		if entry, ok := network.(*indexEntry); ok {
			matches = append(matches, entry.prefixes...)
		}
	}
	return matches, nil
}

func (idx *Index) Contains(ip net.IP) bool {
	matches, err := idx.Lookup(ip)
	return err == nil && len(matches) > 0
}

// Len is the number of distinct networks indexed.
func (idx *Index) Len() int {
	return idx.size
}

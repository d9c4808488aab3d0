package deployment

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

var (
	ErrInvalidChainSelector = errors.New("invalid chain selector")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrChainNotFound        = errors.New("chain not found")
	// ErrNotDeployed is returned when the address book has no record of a contract.
	ErrNotDeployed = errors.New("contract has not been deployed")
)

// Labels attached to the two records of a proxied contract.
const (
	LabelProxy          = "proxy"
	LabelImplementation = "implementation"
)

// ContractType identifies a contract by its artifact name.
type ContractType string

func (ct ContractType) String() string {
	return string(ct)
}

// TypeAndVersion describes a deployed contract. It is stored rather than read from the
// contract because PartyBeaver does not expose typeAndVersion onchain.
type TypeAndVersion struct {
	Type    ContractType   `json:"Type"`
	Version semver.Version `json:"Version"`
	Labels  LabelSet       `json:"Labels,omitempty"`
}

func (tv TypeAndVersion) String() string {
	if len(tv.Labels) == 0 {
		return fmt.Sprintf("%s %s", tv.Type, tv.Version.String())
	}

	return fmt.Sprintf("%s %s %s", tv.Type, tv.Version.String(), tv.Labels.String())
}

func (tv TypeAndVersion) Equal(other TypeAndVersion) bool {
	if tv.Type != other.Type {
		return false
	}
	if !tv.Version.Equal(&other.Version) {
		return false
	}

	return tv.Labels.Equal(other.Labels)
}

// TypeAndVersionFromString parses "<type> <version> [labels...]".
func TypeAndVersionFromString(s string) (TypeAndVersion, error) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return TypeAndVersion{}, fmt.Errorf("invalid type and version string: %s", s)
	}
	v, err := semver.NewVersion(parts[1])
	if err != nil {
		return TypeAndVersion{}, err
	}

	return NewTypeAndVersion(ContractType(parts[0]), *v, parts[2:]...), nil
}

func NewTypeAndVersion(t ContractType, v semver.Version, labels ...string) TypeAndVersion {
	return TypeAndVersion{
		Type:    t,
		Version: v,
		Labels:  NewLabelSet(labels...),
	}
}

// AddressBook stores contract addresses per chain selector. EVM addresses are always stored
// in EIP-55 form and all results are sorted.
type AddressBook interface {
	Save(chainSelector uint64, address string, tv TypeAndVersion) error
	Addresses() (map[uint64]map[string]TypeAndVersion, error)
	AddressesForChain(chain uint64) (map[string]TypeAndVersion, error)
	Merge(other AddressBook) error
	Remove(ab AddressBook) error
}

type AddressesByChain map[uint64]map[string]TypeAndVersion

var _ AddressBook = (*AddressBookMap)(nil)

// AddressBookMap is the in-memory AddressBook.
type AddressBookMap struct {
	addressesByChain *treemap.Map // uint64 -> *treemap.Map[string]TypeAndVersion
	mtx              sync.RWMutex
}

func NewMemoryAddressBook() *AddressBookMap {
	return &AddressBookMap{
		addressesByChain: treemap.NewWith(utils.UInt64Comparator),
	}
}

// NewMemoryAddressBookFromMap builds an address book from a plain map, validating and
// normalizing every record the same way Save does.
func NewMemoryAddressBookFromMap(addressesByChain AddressesByChain) (*AddressBookMap, error) {
	ab := NewMemoryAddressBook()
	for chainSelector, addresses := range addressesByChain {
		for address, tv := range addresses {
			if err := ab.save(chainSelector, address, tv); err != nil {
				return nil, err
			}
		}
	}

	return ab, nil
}

func (m *AddressBookMap) save(chainSelector uint64, address string, typeAndVersion TypeAndVersion) error {
	family, err := chainsel.GetSelectorFamily(chainSelector)
	if err != nil {
		return fmt.Errorf("chain selector %d: %w", chainSelector, ErrInvalidChainSelector)
	}
	if family != chainsel.FamilyEVM {
		return fmt.Errorf("chain selector %d is not an evm chain: %w", chainSelector, ErrInvalidChainSelector)
	}
	if !common.IsHexAddress(address) {
		return fmt.Errorf("address %q is not a valid Ethereum address: %w", address, ErrInvalidAddress)
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return fmt.Errorf("address cannot be zero: %w", ErrInvalidAddress)
	}
	if typeAndVersion.Type == "" {
		return errors.New("type cannot be empty")
	}

	chainAddresses, exists := m.addressesByChain.Get(chainSelector)
	if !exists {
		chainAddresses = treemap.NewWithStringComparator()
		m.addressesByChain.Put(chainSelector, chainAddresses)
	}

	chainMap := chainAddresses.(*treemap.Map)
	if _, exists := chainMap.Get(addr.Hex()); exists {
		return fmt.Errorf("address %s already exists for chain %d", addr.Hex(), chainSelector)
	}
	chainMap.Put(addr.Hex(), typeAndVersion)

	return nil
}

// Save records an address for a chain selector. It errors if the address is already recorded.
func (m *AddressBookMap) Save(chainSelector uint64, address string, typeAndVersion TypeAndVersion) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.save(chainSelector, address, typeAndVersion)
}

func (m *AddressBookMap) Addresses() (map[uint64]map[string]TypeAndVersion, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	result := make(map[uint64]map[string]TypeAndVersion, m.addressesByChain.Size())
	it := m.addressesByChain.Iterator()
	for it.Next() {
		result[it.Key().(uint64)] = toMap(it.Value().(*treemap.Map))
	}

	return result, nil
}

func (m *AddressBookMap) AddressesForChain(chainSelector uint64) (map[string]TypeAndVersion, error) {
	if _, err := chainsel.GetChainIDFromSelector(chainSelector); err != nil {
		return nil, fmt.Errorf("chain selector %d: %w", chainSelector, ErrInvalidChainSelector)
	}

	m.mtx.RLock()
	defer m.mtx.RUnlock()

	chainAddresses, exists := m.addressesByChain.Get(chainSelector)
	if !exists {
		return nil, fmt.Errorf("chain selector %d: %w", chainSelector, ErrChainNotFound)
	}

	return toMap(chainAddresses.(*treemap.Map)), nil
}

// Merge adds the addresses of another address book. It errors on any existing address.
func (m *AddressBookMap) Merge(ab AddressBook) error {
	addresses, err := ab.Addresses()
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	for chainSelector, chainAddresses := range addresses {
		for address, typeAndVersion := range chainAddresses {
			if err := m.save(chainSelector, address, typeAndVersion); err != nil {
				return err
			}
		}
	}

	return nil
}

// Remove deletes the addresses of ab. Nothing is removed unless every address is present.
func (m *AddressBookMap) Remove(ab AddressBook) error {
	addresses, err := ab.Addresses()
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	for chainSelector, chainAddresses := range addresses {
		chainMap, exists := m.addressesByChain.Get(chainSelector)
		if !exists {
			return fmt.Errorf("address book does not contain chain selector %d", chainSelector)
		}

		treeMap := chainMap.(*treemap.Map)
		for address := range chainAddresses {
			if _, exists := treeMap.Get(address); !exists {
				return fmt.Errorf("address book does not contain address %s on chain %d", address, chainSelector)
			}
		}
	}

	for chainSelector, chainAddresses := range addresses {
		chainMap, _ := m.addressesByChain.Get(chainSelector)
		treeMap := chainMap.(*treemap.Map)
		for address := range chainAddresses {
			treeMap.Remove(address)
		}
		if treeMap.Empty() {
			m.addressesByChain.Remove(chainSelector)
		}
	}

	return nil
}

func toMap(tm *treemap.Map) map[string]TypeAndVersion {
	result := make(map[string]TypeAndVersion, tm.Size())
	it := tm.Iterator()
	for it.Next() {
		result[it.Key().(string)] = it.Value().(TypeAndVersion)
	}

	return result
}

// ResolveDeployed returns the address of the single record of typ carrying label on the chain.
// An empty label matches any record of the type. It returns ErrNotDeployed when nothing
// matches.
func ResolveDeployed(ab AddressBook, chain uint64, typ ContractType, label string) (common.Address, error) {
	matches, err := findDeployed(ab, chain, typ, label)
	if err != nil {
		return common.Address{}, err
	}

	switch len(matches) {
	case 0:
		return common.Address{}, fmt.Errorf("%s on chain %d: %w", describe(typ, label), chain, ErrNotDeployed)
	case 1:
		return common.HexToAddress(matches[0]), nil
	default:
		return common.Address{}, fmt.Errorf("found %d records of %s on chain %d, expected one",
			len(matches), describe(typ, label), chain)
	}
}

// LatestDeployed returns the matching record with the highest version.
func LatestDeployed(ab AddressBook, chain uint64, typ ContractType, label string) (common.Address, TypeAndVersion, error) {
	matches, err := findDeployed(ab, chain, typ, label)
	if err != nil {
		return common.Address{}, TypeAndVersion{}, err
	}
	if len(matches) == 0 {
		return common.Address{}, TypeAndVersion{}, fmt.Errorf("%s on chain %d: %w", describe(typ, label), chain, ErrNotDeployed)
	}

	addrs, _ := ab.AddressesForChain(chain)
	var (
		latest   string
		latestTV TypeAndVersion
	)
	for _, addr := range matches {
		tv := addrs[addr]
		if latest == "" || tv.Version.GreaterThan(&latestTV.Version) {
			latest, latestTV = addr, tv
		}
	}

	return common.HexToAddress(latest), latestTV, nil
}

func findDeployed(ab AddressBook, chain uint64, typ ContractType, label string) ([]string, error) {
	addrs, err := ab.AddressesForChain(chain)
	if errors.Is(err, ErrChainNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var matches []string
	for addr, tv := range addrs {
		if tv.Type != typ {
			continue
		}
		if label != "" && !tv.Labels.Contains(label) {
			continue
		}
		matches = append(matches, addr)
	}

	return matches, nil
}

func describe(typ ContractType, label string) string {
	if label == "" {
		return typ.String()
	}

	return fmt.Sprintf("%s (%s)", typ, label)
}

package bans

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sauerbraten/jsonfile"
)

type BanManager struct {
	µ    sync.Mutex
	bans map[string]*Ban // cidr -> ban
}

func New(bans ...*Ban) *BanManager {
	bm := &BanManager{
		bans: map[string]*Ban{},
	}

	for _, ban := range bans {
		bm.addBan(ban)
	}

	return bm
}

// FromFile loads bans from a JSON file. A missing file means no bans.
func FromFile(fileName string) (*BanManager, error) {
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return New(), nil
	}

	var bansFromFile []*Ban
	err := jsonfile.ParseFile(fileName, &bansFromFile)
	if err != nil {
		return nil, err
	}

	return New(bansFromFile...), nil
}

func (bm *BanManager) AddBan(network *net.IPNet, reason string, expiryDate time.Time, global bool) {
	bm.µ.Lock()
	defer bm.µ.Unlock()

	bm.addBan(&Ban{
		Network:    network,
		Reason:     reason,
		ExpiryDate: expiryDate,
		Global:     global,
	})
}

// not safe for concurrent use
func (bm *BanManager) addBan(ban *Ban) {
	// never overwrite local bans with global bans
	if existing, ok := bm.bans[ban.Network.String()]; ok && !existing.Global && ban.Global {
		return
	}

	bm.bans[ban.Network.String()] = ban

	log.Info().Msgf("added ban: %s", ban)
}

// ClearGlobalBans removes all bans set by the master server.
func (bm *BanManager) ClearGlobalBans() {
	bm.µ.Lock()
	defer bm.µ.Unlock()

	for cidr, ban := range bm.bans {
		if ban.Global {
			delete(bm.bans, cidr)
		}
	}
}

func (bm *BanManager) GetBan(ip net.IP) (ban *Ban, ok bool) {
	bm.µ.Lock()
	defer bm.µ.Unlock()

	now := time.Now()
	for cidr, ban := range bm.bans {
		if !ban.Network.Contains(ip) {
			continue
		}
		if ban.Expired(now) {
			delete(bm.bans, cidr)
			continue
		}
		return ban, true
	}

	return nil, false
}

func (bm *BanManager) NumBans() int {
	bm.µ.Lock()
	defer bm.µ.Unlock()
	return len(bm.bans)
}

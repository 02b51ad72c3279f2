package candymachine

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	CandyMachineAccountDisc  = getAccountDiscriminator("CandyMachine")
	CollectionPDAAccountDisc = getAccountDiscriminator("CollectionPDA")
)

var ErrInvalidDiscriminator = errors.New("account discriminator mismatch")

// DecodeCandyMachine - Parse candy machine account data (borsh, anchor layout)
func DecodeCandyMachine(data []byte) (*CandyMachineAccount, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("invalid candy machine data length: %d", len(data))
	}
	if !bytes.Equal(data[:8], CandyMachineAccountDisc[:]) {
		return nil, ErrInvalidDiscriminator
	}

	var acct CandyMachineAccount
	if err := acct.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:])); err != nil {
		return nil, fmt.Errorf("failed to decode candy machine: %w", err)
	}
	return &acct, nil
}

// EncodeCandyMachine - Serialize account data including discriminator
func EncodeCandyMachine(acct *CandyMachineAccount) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(CandyMachineAccountDisc[:])
	if err := acct.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCollectionPDA - Parse collection PDA data
// Layout: discriminator(8) + mint(32) + candy_machine(32)
func DecodeCollectionPDA(data []byte) (*CollectionPDAAccount, error) {
	if len(data) < CollectionPDASize {
		return nil, fmt.Errorf("invalid collection pda data length: %d", len(data))
	}
	if !bytes.Equal(data[:8], CollectionPDAAccountDisc[:]) {
		return nil, ErrInvalidDiscriminator
	}
	return &CollectionPDAAccount{
		Mint:         solana.PublicKeyFromBytes(data[8:40]),
		CandyMachine: solana.PublicKeyFromBytes(data[40:72]),
	}, nil
}

func (a *CandyMachineAccount) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.Authority, err = readPublicKey(dec); err != nil {
		return err
	}
	if a.Wallet, err = readPublicKey(dec); err != nil {
		return err
	}
	ok, err := dec.ReadOption()
	if err != nil {
		return err
	}
	if ok {
		mint, err := readPublicKey(dec)
		if err != nil {
			return err
		}
		a.TokenMint = &mint
	}
	if a.ItemsRedeemed, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	return a.Data.UnmarshalWithDecoder(dec)
}

func (a CandyMachineAccount) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(a.Authority[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.Wallet[:], false); err != nil {
		return err
	}
	if err := enc.WriteOption(a.TokenMint != nil); err != nil {
		return err
	}
	if a.TokenMint != nil {
		if err := enc.WriteBytes(a.TokenMint[:], false); err != nil {
			return err
		}
	}
	if err := enc.WriteUint64(a.ItemsRedeemed, bin.LE); err != nil {
		return err
	}
	return a.Data.MarshalWithEncoder(enc)
}

func (d *CandyMachineData) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if d.UUID, err = dec.ReadRustString(); err != nil {
		return err
	}
	if d.Price, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if d.Symbol, err = dec.ReadRustString(); err != nil {
		return err
	}
	if d.SellerFeeBasisPoints, err = dec.ReadUint16(bin.LE); err != nil {
		return err
	}
	if d.MaxSupply, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if d.IsMutable, err = dec.ReadBool(); err != nil {
		return err
	}
	if d.RetainAuthority, err = dec.ReadBool(); err != nil {
		return err
	}

	// go_live_date: Option<i64>
	ok, err := dec.ReadOption()
	if err != nil {
		return err
	}
	if ok {
		v, err := dec.ReadInt64(bin.LE)
		if err != nil {
			return err
		}
		d.GoLiveDate = &v
	}

	// end_settings: Option<EndSettings>
	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		kind, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		number, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		d.EndSettings = &EndSettings{EndSettingType: EndSettingType(kind), Number: number}
	}

	// creators: Vec<Creator>
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	d.Creators = make([]Creator, 0, count)
	for i := uint32(0); i < count; i++ {
		var c Creator
		if c.Address, err = readPublicKey(dec); err != nil {
			return err
		}
		if c.Verified, err = dec.ReadBool(); err != nil {
			return err
		}
		if c.Share, err = dec.ReadUint8(); err != nil {
			return err
		}
		d.Creators = append(d.Creators, c)
	}

	// hidden_settings: Option<HiddenSettings>
	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		var h HiddenSettings
		if h.Name, err = dec.ReadRustString(); err != nil {
			return err
		}
		if h.URI, err = dec.ReadRustString(); err != nil {
			return err
		}
		hash, err := dec.ReadNBytes(32)
		if err != nil {
			return err
		}
		copy(h.Hash[:], hash)
		d.HiddenSettings = &h
	}

	// whitelist_mint_settings: Option<WhitelistMintSettings>
	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		var w WhitelistMintSettings
		mode, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		w.Mode = WhitelistMintMode(mode)
		if w.Mint, err = readPublicKey(dec); err != nil {
			return err
		}
		if w.Presale, err = dec.ReadBool(); err != nil {
			return err
		}
		hasDiscount, err := dec.ReadOption()
		if err != nil {
			return err
		}
		if hasDiscount {
			v, err := dec.ReadUint64(bin.LE)
			if err != nil {
				return err
			}
			w.DiscountPrice = &v
		}
		d.WhitelistMintSettings = &w
	}

	if d.ItemsAvailable, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}

	// gatekeeper: Option<GatekeeperConfig>
	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		var g GatekeeperConfig
		if g.GatekeeperNetwork, err = readPublicKey(dec); err != nil {
			return err
		}
		if g.ExpireOnUse, err = dec.ReadBool(); err != nil {
			return err
		}
		d.Gatekeeper = &g
	}
	return nil
}

func (d CandyMachineData) MarshalWithEncoder(enc *bin.Encoder) error {
	writers := []func() error{
		func() error { return enc.WriteRustString(d.UUID) },
		func() error { return enc.WriteUint64(d.Price, bin.LE) },
		func() error { return enc.WriteRustString(d.Symbol) },
		func() error { return enc.WriteUint16(d.SellerFeeBasisPoints, bin.LE) },
		func() error { return enc.WriteUint64(d.MaxSupply, bin.LE) },
		func() error { return enc.WriteBool(d.IsMutable) },
		func() error { return enc.WriteBool(d.RetainAuthority) },
		func() error {
			if err := enc.WriteOption(d.GoLiveDate != nil); err != nil || d.GoLiveDate == nil {
				return err
			}
			return enc.WriteInt64(*d.GoLiveDate, bin.LE)
		},
		func() error {
			if err := enc.WriteOption(d.EndSettings != nil); err != nil || d.EndSettings == nil {
				return err
			}
			if err := enc.WriteUint8(uint8(d.EndSettings.EndSettingType)); err != nil {
				return err
			}
			return enc.WriteUint64(d.EndSettings.Number, bin.LE)
		},
		func() error {
			if err := enc.WriteUint32(uint32(len(d.Creators)), bin.LE); err != nil {
				return err
			}
			for _, c := range d.Creators {
				if err := enc.WriteBytes(c.Address[:], false); err != nil {
					return err
				}
				if err := enc.WriteBool(c.Verified); err != nil {
					return err
				}
				if err := enc.WriteUint8(c.Share); err != nil {
					return err
				}
			}
			return nil
		},
		func() error {
			h := d.HiddenSettings
			if err := enc.WriteOption(h != nil); err != nil || h == nil {
				return err
			}
			if err := enc.WriteRustString(h.Name); err != nil {
				return err
			}
			if err := enc.WriteRustString(h.URI); err != nil {
				return err
			}
			return enc.WriteBytes(h.Hash[:], false)
		},
		func() error {
			w := d.WhitelistMintSettings
			if err := enc.WriteOption(w != nil); err != nil || w == nil {
				return err
			}
			if err := enc.WriteUint8(uint8(w.Mode)); err != nil {
				return err
			}
			if err := enc.WriteBytes(w.Mint[:], false); err != nil {
				return err
			}
			if err := enc.WriteBool(w.Presale); err != nil {
				return err
			}
			if err := enc.WriteOption(w.DiscountPrice != nil); err != nil || w.DiscountPrice == nil {
				return err
			}
			return enc.WriteUint64(*w.DiscountPrice, bin.LE)
		},
		func() error { return enc.WriteUint64(d.ItemsAvailable, bin.LE) },
		func() error {
			g := d.Gatekeeper
			if err := enc.WriteOption(g != nil); err != nil || g == nil {
				return err
			}
			if err := enc.WriteBytes(g.GatekeeperNetwork[:], false); err != nil {
				return err
			}
			return enc.WriteBool(g.ExpireOnUse)
		},
	}
	for _, write := range writers {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

// NewDropConfig - Normalize a decoded candy machine into a DropConfig
func NewDropConfig(id solana.PublicKey, acct *CandyMachineAccount, collection *CollectionInfo) (*DropConfig, error) {
	if acct == nil {
		return nil, fmt.Errorf("nil candy machine account")
	}
	d := acct.Data
	if acct.ItemsRedeemed > d.ItemsAvailable {
		return nil, fmt.Errorf("items redeemed (%d) exceeds items available (%d)", acct.ItemsRedeemed, d.ItemsAvailable)
	}

	cfg := &DropConfig{
		ID:                   id,
		Authority:            acct.Authority,
		Treasury:             acct.Wallet,
		BasePrice:            d.Price,
		ItemsAvailable:       d.ItemsAvailable,
		ItemsRedeemed:        acct.ItemsRedeemed,
		RetainAuthority:      d.RetainAuthority,
		SoldOut:              acct.ItemsRedeemed >= d.ItemsAvailable,
		Collection:           collection,
		Symbol:               d.Symbol,
		SellerFeeBasisPoints: d.SellerFeeBasisPoints,
	}
	if d.GoLiveDate != nil {
		v := *d.GoLiveDate
		cfg.GoLiveTime = &v
	}
	if acct.TokenMint != nil {
		v := *acct.TokenMint
		cfg.PaymentToken = &v
	}
	if w := d.WhitelistMintSettings; w != nil {
		ws := &WhitelistSettings{
			Mint:          w.Mint,
			Presale:       w.Presale,
			BurnEveryTime: w.Mode == WhitelistBurnEveryTime,
		}
		if w.DiscountPrice != nil {
			v := *w.DiscountPrice
			ws.DiscountPrice = &v
		}
		cfg.Whitelist = ws
	}
	if e := d.EndSettings; e != nil {
		switch e.EndSettingType {
		case EndSettingDate:
			cfg.EndCondition = &EndCondition{Kind: EndByDate, Value: e.Number}
		case EndSettingAmount:
			cfg.EndCondition = &EndCondition{Kind: EndByAmount, Value: e.Number}
		default:
			return nil, fmt.Errorf("unknown end setting type: %d", e.EndSettingType)
		}
	}
	if g := d.Gatekeeper; g != nil {
		cfg.Gatekeeper = &GatekeeperSettings{Network: g.GatekeeperNetwork, ExpireOnUse: g.ExpireOnUse}
	}
	return cfg, nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

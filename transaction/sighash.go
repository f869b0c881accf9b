package transaction

import (
	"github.com/shadeledger/shade-go-base/hash"
	"github.com/shadeledger/shade-go-base/jubjub"
)

const domainSigHash = "shadeledger.tx.sighash"

// computeSignatureHash digests everything the transaction's signatures
// commit to: the header fields and the ordered signed fields of every
// description. Signer and verifier must produce identical bytes, so the
// field order here is part of the protocol.
func computeSignatureHash(
	version Version,
	expiration uint32,
	fee int64,
	rpk [jubjub.PointSize]byte,
	spends []*SpendDescription,
	outputs []*OutputDescription,
	mints []*MintDescription,
	burns []*BurnDescription,
) ([32]byte, error) {
	var out [32]byte
	h := hash.New(domainSigHash)
	if _, err := h.Write([]byte{byte(version)}); err != nil {
		return out, err
	}
	if err := writeUint32(h, expiration); err != nil {
		return out, err
	}
	if err := writeInt64(h, fee); err != nil {
		return out, err
	}
	if _, err := h.Write(rpk[:]); err != nil {
		return out, err
	}
	for _, s := range spends {
		if err := s.serializeSigned(h); err != nil {
			return out, err
		}
	}
	for _, o := range outputs {
		if err := o.serialize(h); err != nil {
			return out, err
		}
	}
	for _, m := range mints {
		if err := m.serializeSigned(h, version); err != nil {
			return out, err
		}
	}
	for _, b := range burns {
		if err := b.serialize(h); err != nil {
			return out, err
		}
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// bindingMessage is what the binding signature signs: the signature hash
// concatenated with the encoded binding verification key, so the signature
// pins both the transaction content and the claimed net randomness.
func bindingMessage(sigHash [32]byte, bvk [jubjub.PointSize]byte) []byte {
	msg := make([]byte, 0, len(sigHash)+len(bvk))
	msg = append(msg, sigHash[:]...)
	msg = append(msg, bvk[:]...)
	return msg
}

package transaction

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/shadeledger/shade-go-base/asset"
	"github.com/shadeledger/shade-go-base/jubjub"
	"github.com/shadeledger/shade-go-base/keys"
	"github.com/shadeledger/shade-go-base/merkle"
	"github.com/shadeledger/shade-go-base/note"
	"github.com/shadeledger/shade-go-base/proof"
	"github.com/shadeledger/shade-go-base/proof/groth16oracle"
	"github.com/shadeledger/shade-go-base/reddsa"
	"github.com/shadeledger/shade-go-base/util"
)

// ProposedTransaction accumulates spend/output/mint/burn intents and the
// running value ledger. It lives until Post (or Build+Sign) consumes it.
// Not safe for concurrent use.
type ProposedTransaction struct {
	version    Version
	expiration uint32

	spends  []*pendingSpend
	outputs []*pendingOutput
	mints   []*pendingMint
	burns   []*pendingBurn

	ledger *valueLedger
	oracle proof.Oracle
}

type pendingBurn struct {
	assetID asset.Identifier
	value   uint64
}

// NewProposedTransaction starts an empty builder for the given version.
func NewProposedTransaction(version Version) (*ProposedTransaction, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}
	return &ProposedTransaction{
		version: version,
		ledger:  newValueLedger(),
	}, nil
}

// SetExpiration sets the block height after which the transaction is no
// longer valid. Zero means no expiration.
func (p *ProposedTransaction) SetExpiration(height uint32) {
	p.expiration = height
}

// SetProofOracle overrides the proving system. The default is the shared
// process-wide oracle.
func (p *ProposedTransaction) SetProofOracle(o proof.Oracle) {
	p.oracle = o
}

func (p *ProposedTransaction) proofOracle() proof.Oracle {
	if p.oracle != nil {
		return p.oracle
	}
	return groth16oracle.Shared()
}

// AddSpend queues a note to be consumed. The witness must prove the note's
// commitment under the root the spend will be verified against. Zero-value
// spends are permitted.
func (p *ProposedTransaction) AddSpend(n *note.Note, w merkle.Witness) error {
	if n == nil {
		return fmt.Errorf("%w: missing note", ErrInvalidTransaction)
	}
	if w == nil {
		return fmt.Errorf("%w: missing witness", ErrInvalidTransaction)
	}
	commitment, err := n.Commitment()
	if err != nil {
		return err
	}
	if !w.Verify(commitment) {
		return ErrInvalidWitness
	}
	if err := p.ledger.add(n.AssetID(), n.Value()); err != nil {
		return err
	}
	p.spends = append(p.spends, &pendingSpend{note: n, witness: w})
	return nil
}

// AddOutput queues a note to be created. Zero-value outputs are permitted.
func (p *ProposedTransaction) AddOutput(n *note.Note) error {
	if n == nil {
		return fmt.Errorf("%w: missing note", ErrInvalidTransaction)
	}
	if err := p.ledger.subtract(n.AssetID(), n.Value()); err != nil {
		return err
	}
	p.outputs = append(p.outputs, &pendingOutput{note: n})
	return nil
}

// AddMint queues creation of new value for a custom asset. The native asset
// cannot be minted.
func (p *ProposedTransaction) AddMint(a *asset.Asset, value uint64) error {
	return p.addMint(a, value, nil)
}

// AddMintWithTransfer queues a mint that also hands the asset's ownership to
// newOwner. Needs transaction version V2 or later.
func (p *ProposedTransaction) AddMintWithTransfer(a *asset.Asset, value uint64, newOwner keys.PublicAddress) error {
	if !p.version.supportsMintTransfer() {
		return fmt.Errorf("%w: ownership transfer needs version %d", ErrInvalidTransactionVersion, V2)
	}
	if _, err := newOwner.Point(); err != nil {
		return fmt.Errorf("%w: transfer target: %w", ErrInvalidTransaction, err)
	}
	return p.addMint(a, value, &newOwner)
}

func (p *ProposedTransaction) addMint(a *asset.Asset, value uint64, transferTo *keys.PublicAddress) error {
	if a == nil {
		return fmt.Errorf("%w: missing asset", ErrInvalidTransaction)
	}
	if value == 0 {
		return fmt.Errorf("%w: cannot mint zero value", ErrIllegalValue)
	}
	if a.ID() == asset.NativeID() {
		return fmt.Errorf("%w: the native asset cannot be minted", ErrIllegalValue)
	}
	if err := p.ledger.add(a.ID(), value); err != nil {
		return err
	}
	p.mints = append(p.mints, &pendingMint{asset: a, value: value, transferTo: transferTo})
	return nil
}

// AddBurn queues removal of value of a custom asset. The native asset
// cannot be burned.
func (p *ProposedTransaction) AddBurn(id asset.Identifier, value uint64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if value == 0 {
		return fmt.Errorf("%w: cannot burn zero value", ErrIllegalValue)
	}
	if id == asset.NativeID() {
		return fmt.Errorf("%w: the native asset cannot be burned", ErrIllegalValue)
	}
	if err := p.ledger.subtract(id, value); err != nil {
		return err
	}
	p.burns = append(p.burns, &pendingBurn{assetID: id, value: value})
	return nil
}

// Build balances the transaction, proves every description, and produces
// the binding signature. The result still needs the spend and mint
// signatures; Sign or a threshold ceremony supplies those.
//
// Change outputs to changeAddress are created only for non-native assets
// the transaction spends. The native net must equal intendedFee exactly and
// minted surplus must be distributed or burned explicitly; either mismatch
// fails with ErrInvalidBalance before any proof is generated.
func (p *ProposedTransaction) Build(
	viewKey *keys.ViewKey,
	ovk keys.OutgoingViewKey,
	changeAddress keys.PublicAddress,
	intendedFee int64,
) (*UnsignedTransaction, error) {
	if viewKey == nil {
		return nil, errors.New("missing view key")
	}
	if _, err := changeAddress.Point(); err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}

	outputs, ledger, err := p.balance(viewKey, changeAddress)
	if err != nil {
		return nil, err
	}
	if err := ledger.checkBalance(intendedFee); err != nil {
		return nil, err
	}

	randomizer, err := jubjub.RandomScalar(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("drawing key randomizer: %w", err)
	}
	rpkPoint := reddsa.SpendAuth().RandomizePublic(&viewKey.AuthorizingKey, randomizer)
	rpk := jubjub.EncodePoint(&rpkPoint)

	prover := p.proofOracle()
	spendDescs := make([]*SpendDescription, len(p.spends))
	spendCommits := make([]*valueCommitment, len(p.spends))
	outputDescs := make([]*OutputDescription, len(outputs))
	outputCommits := make([]*valueCommitment, len(outputs))
	mintDescs := make([]*MintDescription, len(p.mints))

	eg := errgroup.Group{}
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range p.spends {
		i := i
		eg.Go(func() error {
			desc, vc, err := p.spends[i].build(rand.Reader, prover, viewKey, rpk, randomizer)
			if err != nil {
				return fmt.Errorf("spend %d: %w", i, err)
			}
			spendDescs[i], spendCommits[i] = desc, vc
			return nil
		})
	}
	for i := range outputs {
		i := i
		eg.Go(func() error {
			desc, vc, err := outputs[i].build(rand.Reader, prover, ovk, rpk)
			if err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
			outputDescs[i], outputCommits[i] = desc, vc
			return nil
		})
	}
	for i := range p.mints {
		i := i
		eg.Go(func() error {
			desc, err := p.mints[i].build(prover, rpk, randomizer)
			if err != nil {
				return fmt.Errorf("mint %d: %w", i, err)
			}
			mintDescs[i] = desc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	burnDescs := make([]*BurnDescription, len(p.burns))
	for i, pb := range p.burns {
		if burnDescs[i], err = newBurnDescription(pb.assetID, pb.value); err != nil {
			return nil, fmt.Errorf("burn %d: %w", i, err)
		}
	}

	sigHash, err := computeSignatureHash(p.version, p.expiration, intendedFee, rpk, spendDescs, outputDescs, mintDescs, burnDescs)
	if err != nil {
		return nil, err
	}

	bindingSig, err := signBinding(sigHash, spendCommits, outputCommits)
	if err != nil {
		return nil, err
	}

	return &UnsignedTransaction{
		version:          p.version,
		expiration:       p.expiration,
		randomizedKey:    rpk,
		randomizer:       randomizer,
		fee:              intendedFee,
		spends:           spendDescs,
		outputs:          outputDescs,
		mints:            mintDescs,
		burns:            burnDescs,
		bindingSignature: bindingSig,
		sigHash:          sigHash,
	}, nil
}

// balance adds change outputs and returns the final output set plus the
// ledger both would leave behind. Change exists only for non-native assets
// the transaction spends: minted surplus must be distributed or burned
// explicitly, and the native net must equal the declared fee exactly, so a
// mistyped fee fails instead of silently turning into change. The builder's
// own state is left untouched so a failed Build can be corrected and retried.
func (p *ProposedTransaction) balance(
	viewKey *keys.ViewKey,
	changeAddress keys.PublicAddress,
) ([]*pendingOutput, *valueLedger, error) {
	outputs := append([]*pendingOutput(nil), p.outputs...)
	ledger := p.ledger.clone()

	spentAssets := map[asset.Identifier]bool{}
	for _, ps := range p.spends {
		spentAssets[ps.note.AssetID()] = true
	}

	native := asset.NativeID()
	for _, id := range ledger.assetIDs() {
		if id == native {
			continue
		}
		change := ledger.values[id]
		switch {
		case change == 0:
		case change < 0:
			return nil, nil, fmt.Errorf("%w: asset %s is short by %d", ErrInvalidBalance, id, -change)
		case !spentAssets[id]:
			return nil, nil, fmt.Errorf("%w: asset %s has %d unaccounted", ErrInvalidBalance, id, change)
		default:
			changeNote, err := note.NewNote(rand.Reader, changeAddress, id, uint64(change), note.Memo{}, viewKey.PublicAddress())
			if err != nil {
				return nil, nil, fmt.Errorf("creating change note: %w", err)
			}
			outputs = append(outputs, &pendingOutput{note: changeNote})
			if err := ledger.subtract(id, uint64(change)); err != nil {
				return nil, nil, err
			}
		}
	}
	return outputs, ledger, nil
}

// signBinding signs the binding message with the net commitment randomness.
// The signing key is Σ spend randomness − Σ output randomness; when the
// transaction is balanced its verification key equals the publicly
// recomputable commitment sum.
func signBinding(sigHash [32]byte, spendCommits, outputCommits []*valueCommitment) ([reddsa.SignatureSize]byte, error) {
	var zero [reddsa.SignatureSize]byte
	bsk := new(big.Int)
	for _, vc := range spendCommits {
		bsk = jubjub.ScalarAdd(bsk, vc.randomness)
	}
	for _, vc := range outputCommits {
		bsk = jubjub.ScalarSub(bsk, vc.randomness)
	}
	bvk := reddsa.Binding().VerificationKey(bsk)
	sig, err := reddsa.Binding().Sign(rand.Reader, bsk, bindingMessage(sigHash, bvk))
	if err != nil {
		return zero, fmt.Errorf("binding signature: %w", err)
	}
	return sig, nil
}

// Post balances, proves, and signs in one step.
func (p *ProposedTransaction) Post(key *keys.SpendingKey, changeAddress keys.PublicAddress, intendedFee int64) (*Transaction, error) {
	if key == nil {
		return nil, errors.New("missing spending key")
	}
	unsigned, err := p.Build(key.ViewKey(), key.OutgoingViewKey(), changeAddress, intendedFee)
	if err != nil {
		return nil, err
	}
	return unsigned.Sign(key)
}

// PostMinersFee posts a block reward transaction: exactly one native-asset
// output and a negative fee equal to its value. The general balance check
// does not apply; the fixed shape is enforced instead.
func (p *ProposedTransaction) PostMinersFee(key *keys.SpendingKey) (*Transaction, error) {
	if key == nil {
		return nil, errors.New("missing spending key")
	}
	if len(p.outputs) != 1 || len(p.spends) != 0 || len(p.mints) != 0 || len(p.burns) != 0 {
		return nil, fmt.Errorf("%w: needs exactly one output and nothing else", ErrInvalidMinersFee)
	}
	reward := p.outputs[0].note
	if reward.AssetID() != asset.NativeID() {
		return nil, fmt.Errorf("%w: reward must be the native asset", ErrInvalidMinersFee)
	}
	value, ok := util.ToInt64(reward.Value())
	if !ok {
		return nil, fmt.Errorf("%w: reward value %d", ErrIllegalValue, reward.Value())
	}
	fee := -value

	randomizer, err := jubjub.RandomScalar(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("drawing key randomizer: %w", err)
	}
	viewKey := key.ViewKey()
	rpkPoint := reddsa.SpendAuth().RandomizePublic(&viewKey.AuthorizingKey, randomizer)
	rpk := jubjub.EncodePoint(&rpkPoint)

	desc, vc, err := p.outputs[0].build(rand.Reader, p.proofOracle(), key.OutgoingViewKey(), rpk)
	if err != nil {
		return nil, fmt.Errorf("output 0: %w", err)
	}
	outputDescs := []*OutputDescription{desc}

	sigHash, err := computeSignatureHash(p.version, p.expiration, fee, rpk, nil, outputDescs, nil, nil)
	if err != nil {
		return nil, err
	}
	bindingSig, err := signBinding(sigHash, nil, []*valueCommitment{vc})
	if err != nil {
		return nil, err
	}

	unsigned := &UnsignedTransaction{
		version:          p.version,
		expiration:       p.expiration,
		randomizedKey:    rpk,
		randomizer:       randomizer,
		fee:              fee,
		outputs:          outputDescs,
		bindingSignature: bindingSig,
		sigHash:          sigHash,
	}
	return unsigned.Sign(key)
}

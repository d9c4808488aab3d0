package migrations

import (
	"os"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/contracts/contractstest"
	"github.com/fluuu/partybeaver-deployments/contracts/partybeaver"
	"github.com/fluuu/partybeaver-deployments/contracts/proxy"
	"github.com/fluuu/partybeaver-deployments/deployment"
)

const pbType = deployment.ContractType(partybeaver.ContractName)

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	r := te.runner(t)

	applied, err := r.Run(RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{DeployContractsKey}, applied)

	ab := te.addressBook(t)
	proxyAddr, err := deployment.ResolveDeployed(ab, te.chain.Selector, pbType, deployment.LabelProxy)
	require.NoError(t, err)
	implAddr, err := deployment.ResolveDeployed(ab, te.chain.Selector, pbType, deployment.LabelImplementation)
	require.NoError(t, err)

	onchainImpl, err := proxy.ImplementationAddress(t.Context(), te.chain.Client, proxyAddr)
	require.NoError(t, err)
	assert.Equal(t, implAddr, onchainImpl)

	assert.Equal(t,
		"PartyBeaver contract owner: "+te.chain.DeployerKey.From.Hex()+"\n"+
			"PartyBeaver contract address:\n"+
			proxyAddr.Hex()+"\n",
		te.out.String(),
	)

	log, err := te.envDir.LoadMigrationLog()
	require.NoError(t, err)
	assert.True(t, log.IsCompleted(DeployContractsKey, te.chain.Selector))

	reports, err := te.envDir.LoadReports(DeployContractsKey)
	require.NoError(t, err)
	assert.Len(t, reports, 4)

	// Completed migrations are skipped.
	applied, err = r.Run(RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRunner_Run_Only(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	r := te.runner(t)

	_, err := r.Run(RunOptions{Only: "0009_missing"})
	require.ErrorIs(t, err, ErrMigrationUnknown)

	_, err = r.Run(RunOptions{Only: DeployContractsKey})
	require.NoError(t, err)

	_, err = r.Run(RunOptions{Only: DeployContractsKey})
	require.ErrorIs(t, err, ErrAlreadyDeployed)
}

func TestRunner_Run_Force(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	r := te.runner(t)

	_, err := r.Run(RunOptions{})
	require.NoError(t, err)
	first, err := deployment.ResolveDeployed(te.addressBook(t), te.chain.Selector, pbType, deployment.LabelProxy)
	require.NoError(t, err)

	applied, err := r.Run(RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{DeployContractsKey}, applied)

	ab := te.addressBook(t)
	second, err := deployment.ResolveDeployed(ab, te.chain.Selector, pbType, deployment.LabelProxy)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	addrs, err := ab.AddressesForChain(te.chain.Selector)
	require.NoError(t, err)
	assert.Len(t, addrs, 2, "records of the replaced deployment are removed")
	for _, tv := range addrs {
		assert.Equal(t, "1.0.0", tv.Version.String())
	}

	log, err := te.envDir.LoadMigrationLog()
	require.NoError(t, err)
	require.Len(t, log.Completed, 2)
	assert.True(t, log.Completed[1].Forced)

	reports, err := te.envDir.LoadReports(DeployContractsKey)
	require.NoError(t, err)
	for _, rep := range reports {
		assert.Equal(t, rep.Def.ID != DeployProxySeq.ID(), rep.Forced, rep.Def.ID)
	}
}

func TestDeployContracts_ExistingProxy(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)

	ab := deployment.NewMemoryAddressBook()
	require.NoError(t, ab.Save(te.chain.Selector, "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		deployment.NewTypeAndVersion(pbType, *v100, deployment.LabelProxy)))
	require.NoError(t, te.envDir.SaveAddressBook(ab))

	_, err := te.runner(t).Run(RunOptions{})
	require.ErrorIs(t, err, ErrAlreadyDeployed)

	nonce, err := te.chain.Client.NonceAt(t.Context(), te.chain.DeployerKey.From, nil)
	require.NoError(t, err)
	assert.Zero(t, nonce, "nothing is sent")
}

func TestRunner_Run_ResumesAfterFailure(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	proxyArtifact := string(te.artifacts) + "/" + proxy.ContractName + ".json"
	require.NoError(t, os.Remove(proxyArtifact))

	r := te.runner(t)
	_, err := r.Run(RunOptions{})
	require.ErrorContains(t, err, deployment.ErrArtifactNotFound.Error())

	_, statErr := os.Stat(te.envDir.AddressBookFilePath())
	require.ErrorIs(t, statErr, os.ErrNotExist, "address book is only written on success")

	reports, err := te.envDir.LoadReports(DeployContractsKey)
	require.NoError(t, err)
	var implAddr string
	for _, rep := range reports {
		if rep.Def.ID == DeployImplementationOp.ID() && rep.Err == nil {
			out, ok := rep.Output.(map[string]any)
			require.True(t, ok)
			implAddr, _ = out["address"].(string)
		}
	}
	require.NotEmpty(t, implAddr)

	contractstest.WriteArtifacts(t, string(te.artifacts))
	_, err = r.Run(RunOptions{})
	require.NoError(t, err)

	got, err := deployment.ResolveDeployed(te.addressBook(t), te.chain.Selector, pbType, deployment.LabelImplementation)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(implAddr), got, "implementation is not deployed twice")
}

func TestRunner_Upgrade(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	r := te.runner(t)

	v110 := semver.MustParse("1.1.0")
	err := r.Upgrade(UpgradeContracts{ContractName: partybeaver.ContractName, Version: v110}, false)
	require.ErrorIs(t, err, deployment.ErrNotDeployed)

	_, err = r.Run(RunOptions{})
	require.NoError(t, err)
	proxyAddr, err := deployment.ResolveDeployed(te.addressBook(t), te.chain.Selector, pbType, deployment.LabelProxy)
	require.NoError(t, err)

	require.NoError(t, r.Upgrade(UpgradeContracts{ContractName: partybeaver.ContractName, Version: v110}, false))

	ab := te.addressBook(t)
	newImpl, tv, err := deployment.LatestDeployed(ab, te.chain.Selector, pbType, deployment.LabelImplementation)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", tv.Version.String())

	onchain, err := proxy.ImplementationAddress(t.Context(), te.chain.Client, proxyAddr)
	require.NoError(t, err)
	assert.Equal(t, newImpl, onchain)

	records, err := ab.AddressesForChain(te.chain.Selector)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", records[proxyAddr.Hex()].Version.String(), "proxy record follows the implementation")

	log, err := te.envDir.LoadMigrationLog()
	require.NoError(t, err)
	assert.True(t, log.IsCompleted(UpgradeKey(v110), te.chain.Selector))

	err = r.Upgrade(UpgradeContracts{ContractName: partybeaver.ContractName, Version: v110}, false)
	require.ErrorIs(t, err, ErrVersionNotNewer)
}

func TestRunner_UpgradeAfterForcedRedeploy(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	r := te.runner(t)
	v110 := semver.MustParse("1.1.0")

	_, err := r.Run(RunOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Upgrade(UpgradeContracts{ContractName: partybeaver.ContractName, Version: v110}, false))

	_, err = r.Run(RunOptions{Force: true})
	require.NoError(t, err)

	ab := te.addressBook(t)
	proxyAddr, tv, err := deployment.LatestDeployed(ab, te.chain.Selector, pbType, deployment.LabelProxy)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", tv.Version.String())

	// The new proxy runs 1.0.0, so 1.1.0 is newer again.
	require.NoError(t, r.Upgrade(UpgradeContracts{ContractName: partybeaver.ContractName, Version: v110}, false))

	ab = te.addressBook(t)
	records, err := ab.AddressesForChain(te.chain.Selector)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", records[proxyAddr.Hex()].Version.String())

	impl, implTV, err := deployment.LatestDeployed(ab, te.chain.Selector, pbType, deployment.LabelImplementation)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", implTV.Version.String())

	onchain, err := proxy.ImplementationAddress(t.Context(), te.chain.Client, proxyAddr)
	require.NoError(t, err)
	assert.Equal(t, impl, onchain)
}

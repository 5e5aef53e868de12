package commands

import (
	"context"

	"github.com/DrDelphi/LuckyOneBot/config"
	"github.com/DrDelphi/LuckyOneBot/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// SetupDeployment verifies that the runner's deployment points at a reachable lottery contract
// and writes it as the deployment record of its network
func (r *Runner) SetupDeployment(ctx context.Context) error {
	r.println("🔧 ===== SETUP EXISTING CONTRACT =====")

	if r.deployment.Network == "" {
		return errors.Wrap(ErrNilDeployment, "no network name given")
	}
	address := r.deployment.LotteryAddress
	if !common.IsHexAddress(address) || common.HexToAddress(address) == (common.Address{}) {
		return errors.Wrap(ErrInvalidAddress, address)
	}

	r.printf("🎯 Network: %s\n", r.deployment.Network)
	r.printf("📍 Contract Address: %s\n", common.HexToAddress(address).Hex())
	if r.deployment.Deployer != "" {
		r.printf("👑 Original Deployer: %s\n", r.deployment.Deployer)
	}

	dir := r.cfg.DeploymentsDir
	existing, err := config.LoadDeployment(dir, r.deployment.Network)
	if err == nil {
		r.println("⚠️  Deployment record already exists")
		r.printf("   Address: %s\n", existing.LotteryAddress)
		r.println("Overwriting it with the verified contract")
	}

	r.println()
	r.println("🧪 Testing connection to contract...")
	owner, err := r.manager.GetOwner(ctx)
	if err != nil {
		r.println("❌ Connection test failed:", utils.FriendlyError(err))
		return errors.Wrapf(err, "%s does not answer as a lottery contract", address)
	}
	r.println("✅ Connection successful!")
	r.printf("   Owner: %s\n", owner.Hex())

	price, err := r.manager.GetTicketPrice(ctx)
	if err == nil {
		r.printf("   Ticket Price: %s\n", r.amount(price))
	}
	roundID, err := r.manager.GetCurrentRoundID(ctx)
	if err == nil {
		r.printf("   Current Round: %d\n", roundID)
	}

	err = config.SaveDeployment(dir, r.deployment)
	if err != nil {
		return errors.Wrap(err, "can not write the deployment record")
	}

	r.println()
	r.printf("✅ Created %s\n", config.DeploymentPath(dir, r.deployment.Network))
	r.section("🎉 SETUP COMPLETE!")
	r.println("You can now interact with the lottery using:")
	r.printf("   luckyone --network %s status\n", r.deployment.Network)
	r.printf("   luckyone --network %s buy-tickets --tickets 5\n", r.deployment.Network)
	r.printf("   luckyone --network %s player-info\n", r.deployment.Network)
	r.printf("   luckyone --network %s claim-prize --round N\n", r.deployment.Network)
	r.printf("🔗 Explorer: %s\n", r.addressLink(common.HexToAddress(address).Hex()))

	return nil
}

package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/DrDelphi/LuckyOneBot/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrNoDeployment          = errors.New("no deployment found")
	ErrInvalidLotteryAddress = errors.New("invalid lottery address in deployment record")
)

// DeploymentPath returns the record location for the network: <dir>/<network>.json
func DeploymentPath(dir string, network string) string {
	return filepath.Join(dir, network+".json")
}

// LoadDeployment reads the deployment record written for the network
func LoadDeployment(dir string, network string) (*data.Deployment, error) {
	path := DeploymentPath(dir, network)
	content, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoDeployment, "for %s, please deploy first", network)
	}
	if err != nil {
		return nil, err
	}

	deployment := &data.Deployment{}
	err = json.Unmarshal(content, deployment)
	if err != nil {
		return nil, errors.Wrapf(err, "can not parse %s", path)
	}

	if !common.IsHexAddress(deployment.LotteryAddress) {
		return nil, errors.Wrap(ErrInvalidLotteryAddress, deployment.LotteryAddress)
	}

	return deployment, nil
}

// SaveDeployment writes the record to <dir>/<network>.json, creating the directory if needed
func SaveDeployment(dir string, deployment *data.Deployment) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	content, err := json.MarshalIndent(deployment, "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(DeploymentPath(dir, deployment.Network), content, 0644)
}

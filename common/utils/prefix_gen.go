package utils

import (
	prt "github.com/abcfe/abcfe-keyring/protocol"
)

// "ks:addr:"
func GetKeystoreKey(address prt.Address) []byte {
	return []byte(prt.PrefixKeystore + AddressToString(address))
}

// "vault:file:"
func GetVaultKey(fileName string) []byte {
	return []byte(prt.PrefixVault + fileName)
}

// "meta:latest-backup"
func GetLatestBackupKey() []byte {
	return []byte(prt.PrefixMetaLatestBackup)
}

// "meta:accounts"
func GetAccountCountKey() []byte {
	return []byte(prt.PrefixMetaAccountCount)
}

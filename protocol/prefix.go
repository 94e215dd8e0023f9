package protocol

const (
	// Metadata related prefixes
	PrefixMeta             = "meta:"              // Metadata key
	PrefixMetaLatestBackup = "meta:latest-backup" // File name of the most recent vault backup
	PrefixMetaAccountCount = "meta:accounts"      // Number of derived accounts at the last backup

	// Keystore related prefixes
	PrefixKeystore = "ks:addr:" // ks:addr:Address = Keystore record (file name, created at)

	// Vault related prefixes
	PrefixVault = "vault:file:" // vault:file:FileName = Backup record
)

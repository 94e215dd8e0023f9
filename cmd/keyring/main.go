package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/abcfe/abcfe-keyring/app"
	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/abcfe/abcfe-keyring/internal/styles"
	"github.com/abcfe/abcfe-keyring/wallet"
	"github.com/spf13/cobra"
)

// Version info, set with -ldflags -X
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile string
	debug      bool
	passphrase string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "abcfe-keyring",
		Short:         "ABCFe self-custody keyring",
		Long:          `HD keyring for secp256k1 accounts with encrypted backups and Web3 keystore files.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level and mirror logs to stderr")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "Keyring passphrase (prompted when empty)")

	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(keystoreCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Err("Error: "+err.Error()))
		os.Exit(1)
	}
}

// withApp runs fn against a freshly initialized application.
func withApp(fn func(a *app.App) error) error {
	application, err := app.New(configFile)
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(application)
}

// loadKeyring restores the latest backup with the keyring passphrase.
func loadKeyring(a *app.App) error {
	if !a.Wallet.HasBackup() {
		return fmt.Errorf("%w: use 'wallet create' or 'wallet restore' first", wallet.ErrNoBackup)
	}
	pw, err := passwordOrPrompt(&passphrase, "Keyring passphrase: ", false)
	if err != nil {
		return err
	}
	return a.Wallet.LoadWalletFile(pw)
}

func printAccount(account wallet.Account) {
	fmt.Println(styles.Box(
		styles.Field("Index", strconv.Itoa(account.Index)),
		styles.Field("Address", crypto.AddressToChecksumHex(account.Address)),
		styles.Field("Path", account.Path),
	))
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet management commands",
		Long:  `Commands for managing the keyring, its accounts and backups.`,
	}

	cmd.AddCommand(walletCreateCmd())
	cmd.AddCommand(walletRestoreCmd())
	cmd.AddCommand(walletListCmd())
	cmd.AddCommand(walletAddAccountCmd())
	cmd.AddCommand(walletShowMnemonicCmd())
	cmd.AddCommand(walletBackupCmd())
	cmd.AddCommand(walletRecoverCmd())

	return cmd
}

// Create new wallet
func walletCreateCmd() *cobra.Command {
	var words int
	var force bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new keyring with a fresh mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if a.Wallet.HasBackup() && !force {
					return fmt.Errorf("a wallet backup already exists; pass --force to create another")
				}
				pw, err := passwordOrPrompt(&passphrase, "New keyring passphrase: ", true)
				if err != nil {
					return err
				}

				k, err := a.Wallet.CreateWallet(words, pw)
				if err != nil {
					return err
				}
				path, err := a.Wallet.SaveWallet()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("New Wallet Created"))
				fmt.Println(styles.Warn("Write down your mnemonic phrase and keep it safe!"))
				fmt.Println(styles.Warn("If you lose it, you will lose access to your wallet forever."))
				fmt.Println()
				fmt.Println(k.Mnemonic().Phrase())
				fmt.Println()
				printAccount(k.Accounts()[0])
				fmt.Println(styles.Field("Saved", path))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&words, "words", "n", wallet.DefaultWordCount, "Mnemonic length (12, 15, 18, 21 or 24)")
	cmd.Flags().BoolVar(&force, "force", false, "Create even when a backup exists")
	return cmd
}

// Restore wallet from mnemonic
func walletRestoreCmd() *cobra.Command {
	var mnemonic string
	var accounts int

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a keyring from a mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mnemonic == "" {
				return fmt.Errorf("please provide a mnemonic phrase with --mnemonic")
			}
			return withApp(func(a *app.App) error {
				pw, err := passwordOrPrompt(&passphrase, "Keyring passphrase: ", true)
				if err != nil {
					return err
				}
				k, err := a.Wallet.RestoreWallet(mnemonic, pw, accounts)
				if err != nil {
					return err
				}
				path, err := a.Wallet.SaveWallet()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Wallet Restored"))
				for _, account := range k.Accounts() {
					printAccount(account)
				}
				fmt.Println(styles.Field("Saved", path))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&mnemonic, "mnemonic", "m", "", "Mnemonic phrase to restore")
	cmd.Flags().IntVar(&accounts, "accounts", 1, "Number of accounts to derive")
	return cmd
}

// List accounts
func walletListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if err := loadKeyring(a); err != nil {
					return err
				}
				accounts, err := a.Wallet.GetAccounts()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Wallet Accounts"))
				for _, account := range accounts {
					printAccount(account)
				}
				return nil
			})
		},
	}
}

// Add new account
func walletAddAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-account",
		Short: "Derive the next account and save the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if err := loadKeyring(a); err != nil {
					return err
				}
				account, err := a.Wallet.AddAccount()
				if err != nil {
					return err
				}
				if _, err := a.Wallet.SaveWallet(); err != nil {
					return err
				}

				fmt.Println(styles.Title("New Account Added"))
				printAccount(*account)
				return nil
			})
		},
	}
}

// Show mnemonic
func walletShowMnemonicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-mnemonic",
		Short: "Show the keyring's mnemonic phrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if err := loadKeyring(a); err != nil {
					return err
				}
				mnemonic, err := a.Wallet.GetMnemonic()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Wallet Mnemonic"))
				fmt.Println(styles.Warn("Never share your mnemonic with anyone!"))
				fmt.Println()
				fmt.Println(mnemonic)
				return nil
			})
		},
	}
}

// Write a fresh backup of the latest keyring with the configured cipher, or list backups.
func walletBackupCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Re-encrypt the keyring into a new backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				if list {
					return printBackups(a)
				}
				if err := loadKeyring(a); err != nil {
					return err
				}
				path, err := a.Wallet.SaveWallet()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Wallet Backed Up"))
				fmt.Println(styles.Field("Cipher", a.Conf.Vault.Algorithm))
				fmt.Println(styles.Field("Saved", path))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List recorded backups instead")
	return cmd
}

func printBackups(a *app.App) error {
	backups, err := a.Index.ListBackups()
	if err != nil {
		return err
	}

	fmt.Println(styles.Title("Wallet Backups"))
	for _, b := range backups {
		fmt.Println(styles.Box(
			styles.Field("File", b.FileName),
			styles.Field("Cipher", b.Algorithm),
			styles.Field("Accounts", strconv.Itoa(b.NumAccounts)),
		))
	}
	return nil
}

// Recover a keyring from a backup file and record it as the latest backup.
func walletRecoverCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Load a keyring from a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("please provide a backup file with --file")
			}
			return withApp(func(a *app.App) error {
				pw, err := passwordOrPrompt(&passphrase, "Backup password: ", false)
				if err != nil {
					return err
				}
				if err := a.Wallet.LoadWalletFrom(file, pw); err != nil {
					return err
				}
				path, err := a.Wallet.SaveWallet()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Wallet Recovered"))
				for _, account := range a.Wallet.Keyring.Accounts() {
					printAccount(account)
				}
				fmt.Println(styles.Field("Saved", path))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Backup file (<uuid>.json)")
	return cmd
}

func keystoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystore",
		Short: "Web3 keystore commands",
	}

	cmd.AddCommand(keystoreExportCmd())
	cmd.AddCommand(keystoreImportCmd())
	cmd.AddCommand(keystoreListCmd())
	return cmd
}

func keystoreExportCmd() *cobra.Command {
	var address, password string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one account as a keystore file",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := utils.StringToAddress(address)
			if err != nil {
				return err
			}
			return withApp(func(a *app.App) error {
				if err := loadKeyring(a); err != nil {
					return err
				}
				pw, err := passwordOrPrompt(&password, "Keystore password: ", true)
				if err != nil {
					return err
				}
				path, err := a.Wallet.ExportKeystore(addr, []byte(pw))
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Keystore Exported"))
				fmt.Println(styles.Field("Address", crypto.AddressToChecksumHex(addr)))
				fmt.Println(styles.Field("File", path))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Account address")
	cmd.Flags().StringVar(&password, "password", "", "Keystore password (prompted when empty)")
	return cmd
}

func keystoreImportCmd() *cobra.Command {
	var file, password string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Decrypt a keystore file and record it in the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("please provide a keystore file with --file")
			}
			return withApp(func(a *app.App) error {
				pw, err := passwordOrPrompt(&password, "Keystore password: ", false)
				if err != nil {
					return err
				}
				w, err := a.Wallet.ImportKeystore(file, []byte(pw))
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Keystore Imported"))
				fmt.Println(styles.Field("Address", w.AddressHex()))
				fmt.Println(styles.Field("PubKey", w.PublicKeyHex()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Keystore file")
	cmd.Flags().StringVar(&password, "password", "", "Keystore password (prompted when empty)")
	return cmd
}

func keystoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed keystore files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				records, err := a.Wallet.ListKeystores()
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Keystores"))
				for _, rec := range records {
					addr, err := utils.StringToAddress(rec.Address)
					if err != nil {
						return err
					}
					fmt.Println(styles.Box(
						styles.Field("Address", crypto.AddressToChecksumHex(addr)),
						styles.Field("File", rec.FileName),
					))
				}
				return nil
			})
		},
	}
}

func signCmd() *cobra.Command {
	var address, message string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with the Ethereum personal message prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := utils.StringToAddress(address)
			if err != nil {
				return err
			}
			return withApp(func(a *app.App) error {
				if err := loadKeyring(a); err != nil {
					return err
				}
				sig, err := a.Wallet.SignMessage(addr, []byte(message))
				if err != nil {
					return err
				}

				fmt.Println(styles.Title("Signed Message"))
				fmt.Println(styles.Field("Address", crypto.AddressToChecksumHex(addr)))
				fmt.Println(styles.Field("Digest", utils.HashToString(crypto.TextHash([]byte(message)))))
				fmt.Println(styles.Field("Signature", utils.SignatureToString(sig.Bytes())))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Signing account address")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to sign")
	return cmd
}

// verifyMessage reports the address recovered from a personal-message signature
// and whether it matches want.
func verifyMessage(want, message, signature string) (string, bool, error) {
	addr, err := utils.StringToAddress(want)
	if err != nil {
		return "", false, err
	}
	raw, err := utils.StringToSignature(signature)
	if err != nil {
		return "", false, err
	}
	sig, err := crypto.SignatureFromBytes(raw[:])
	if err != nil {
		return "", false, err
	}
	signer, err := crypto.RecoverAddress(crypto.TextHash([]byte(message)), sig)
	if err != nil {
		return "", false, err
	}
	return crypto.AddressToChecksumHex(signer), signer == addr, nil
}

// Verify needs no keyring: the signer is recovered from the signature alone.
func verifyCmd() *cobra.Command {
	var address, message, signature string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a personal message signature against an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, ok, err := verifyMessage(address, message, signature)
			if err != nil {
				return err
			}

			fmt.Println(styles.Title("Signature Check"))
			fmt.Println(styles.Field("Signer", signer))
			if !ok {
				return fmt.Errorf("signature was made by %s, not %s", signer, address)
			}
			fmt.Println(styles.Field("Result", "valid"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Expected signer address")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Signed message")
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "65-byte r || s || v signature, hex")
	return cmd
}

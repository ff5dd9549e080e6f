package auth

import (
	"fmt"
	"strings"
)

// ShowAPIKeyGuide displays step-by-step instructions for generating REST API keys
func ShowAPIKeyGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 WOOCOMMERCE REST API KEY GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs a WooCommerce REST API key pair to read and update products.")
	fmt.Println("Follow these steps to generate one in the store's admin panel:")
	fmt.Println()

	fmt.Println("🔧 STEP 1: Open the API key settings")
	fmt.Println("   - Log in to the store's WordPress admin")
	fmt.Println("   - Go to WooCommerce → Settings → Advanced → REST API")
	fmt.Println("   - Click 'Add key'")
	fmt.Println()

	fmt.Println("🔑 STEP 2: Create the key")
	fmt.Println("   - Description: anything recognizable, e.g. 'catmigrate'")
	fmt.Println("   - User: an account with shop manager or admin rights")
	fmt.Println("   - Permissions: Read/Write (updates need write access)")
	fmt.Println("   - Click 'Generate API key'")
	fmt.Println()

	fmt.Println("📋 STEP 3: Copy both values immediately")
	fmt.Println("   ┌─────────────────┬──────────────────────────────────────┐")
	fmt.Println("   │ Field           │ What it looks like                   │")
	fmt.Println("   ├─────────────────┼──────────────────────────────────────┤")
	fmt.Println("   │ Consumer key    │ ck_ followed by 40 hex characters    │")
	fmt.Println("   │ Consumer secret │ cs_ followed by 40 hex characters    │")
	fmt.Println("   └─────────────────┴──────────────────────────────────────┘")
	fmt.Println()

	fmt.Println("💡 TIPS:")
	fmt.Println("   • The secret is shown only once, copy it before leaving the page")
	fmt.Println("   • Revoke the key from the same screen when the migration is done")
	fmt.Println()

	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • This key pair can modify every product in the store")
	fmt.Println("   • NEVER commit it or share it (this tool stores it encrypted)")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickKeyGuide shows a condensed version for experienced users
func ShowQuickKeyGuide() {
	fmt.Println("\n🔑 Quick Guide: WooCommerce → Settings → Advanced → REST API → Add key (Read/Write)")
	fmt.Println("   Need: consumer key (ck_...) and consumer secret (cs_...)")
	fmt.Println("   Run 'catmigrate auth login' for detailed instructions")
}

package inference

import "strings"

// IntroPrompt is asked when the chat opens without a user question.
const IntroPrompt = "Explain what Smart Wallet Sub Accounts are and how they improve user experience in web3 applications."

const contextPreamble = `Context: You are an AI assistant in an application that showcases Coinbase Smart Wallet Sub Accounts and Spend Limits features.
These features allow users to perform blockchain transactions without authentication popups.

When responding, include some information on how Smart Wallet Sub Accounts provide a better user experience by:
1. Allowing popup-less transactions with pre-approved spend limits
2. Making dapps more user-friendly with fewer interruptions
3. Maintaining security through onchain relationships with the main wallet

Now, respond to this user query: `

// EnhancePrompt wraps a user question in the Sub Accounts context.
func EnhancePrompt(prompt string) string {
	return contextPreamble + strings.TrimSpace(prompt)
}

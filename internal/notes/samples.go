package notes

import (
	"fmt"
	"time"

	"github.com/subaccounts/notes-server/internal/domain"
)

const day = 24 * time.Hour

type sampleAuthor struct {
	address string
	name    string
}

var sampleAuthors = []sampleAuthor{
	{address: "0x1234567890123456789012345678901234567890", name: "CryptoWhale"},
	{address: "0x2345678901234567890123456789012345678901", name: "BlockchainDev"},
	{address: "0x3456789012345678901234567890123456789012", name: "NFT_Collector"},
	{address: "0x4567890123456789012345678901234567890123", name: "DeFiMaster"},
}

// SampleOwners returns the synthetic owner addresses used by SampleNotes.
func SampleOwners() []string {
	owners := make([]string, len(sampleAuthors))
	for i, a := range sampleAuthors {
		owners[i] = a.address
	}
	return owners
}

// SampleNotes returns the canned public notes shown to an account whose
// public feed is empty. It is pure: the same now yields the same notes.
func SampleNotes(now time.Time) []domain.Note {
	stamp := now.UnixMilli()
	sample := func(n int, author sampleAuthor, age time.Duration, title, content, price string, tips int) domain.Note {
		at := now.Add(-age).UnixMilli()
		return domain.Note{
			ID:          fmt.Sprintf("note-%d-pub%d", stamp, n),
			Title:       title,
			Content:     content,
			Created:     at,
			Updated:     at,
			IsPublic:    true,
			Owner:       author.address,
			Author:      author.name,
			TipCount:    tips,
			PublicPrice: price,
		}
	}

	return []domain.Note{
		sample(1, sampleAuthors[0], 4*day,
			"Sub Accounts: The Future of Web3 UX",
			"Sub Accounts represent the next evolution in web3 user experience by allowing seamless, permission-less interactions without constant wallet confirmations.\n\n"+
				"Unlike traditional wallet interactions, Sub Accounts let dApps execute transactions within pre-approved limits, creating a web2-like UX with web3 security.",
			"0.0002", 5),
		sample(2, sampleAuthors[1], 5*day,
			"How Smart Wallet Security Works",
			"Smart Wallets utilize a multi-layered security approach with threshold signatures and social recovery mechanisms.\n\n"+
				"The key innovation is the separation between authentication (proving who you are) and authorization (approving specific actions), enabling more flexible permission models.",
			"0.0001", 3),
		sample(3, sampleAuthors[2], 3*day,
			"Building with ERC-4337 Account Abstraction",
			"ERC-4337 Account Abstraction is revolutionizing how we think about blockchain interactions. "+
				"This guide walks you through implementing basic account abstraction features in your dApp.",
			"0.0003", 7),
		sample(4, sampleAuthors[3], 2*day,
			"Free Guide: Getting Started with Web3",
			"This beginner-friendly guide explains the fundamentals of web3, wallets, and how to safely navigate the blockchain ecosystem. "+
				"Perfect for newcomers looking to understand the decentralized web.",
			"", 2),
	}
}

// OwnSampleNotes returns the demo notes added to account's own view by the
// "add sample notes" action.
func OwnSampleNotes(account string, now time.Time) []domain.Note {
	account = domain.NormalizeAccount(account)
	author := domain.ShortAccount(account)
	stamp := now.UnixMilli()
	oneDayAgo := now.Add(-day).UnixMilli()
	twoDaysAgo := now.Add(-2 * day).UnixMilli()

	return []domain.Note{
		{
			ID:    fmt.Sprintf("note-%d-1", stamp),
			Title: "How Spend Limits Work",
			Content: "Smart Wallet Spend Limits enable third-party signers to spend assets from a user's wallet without requiring authentication for each transaction. " +
				"This creates a seamless UX for subscriptions, trading, and more.",
			Created:     oneDayAgo,
			Updated:     oneDayAgo,
			IsPublic:    true,
			Owner:       account,
			Author:      author,
			TipCount:    3,
			PublicPrice: "0.0001",
		},
		{
			ID:    fmt.Sprintf("note-%d-2", stamp),
			Title: "Sub Accounts Overview",
			Content: "Sub Accounts are wallet accounts directly embedded in applications, linked to the user's main Smart Wallet. " +
				"They enable popup-less transactions with pre-approved spend limits and maintain security through onchain relationships.",
			Created:  twoDaysAgo,
			Updated:  twoDaysAgo,
			IsPublic: false,
			Owner:    account,
			Author:   author,
		},
	}
}

package player

import (
	"fmt"
	"math"
)

// Deposit moves money into the bank.
func (p *Player) Deposit(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > p.Stats.Money {
		return fmt.Errorf("deposit %d with %d in hand: %w", amount, p.Stats.Money, ErrInsufficientFunds)
	}
	p.Stats.Money -= amount
	p.Stats.BankDeposit += amount
	return nil
}

// Withdraw moves money out of the bank.
func (p *Player) Withdraw(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > p.Stats.BankDeposit {
		return fmt.Errorf("withdraw %d from %d: %w", amount, p.Stats.BankDeposit, ErrInsufficientFunds)
	}
	p.Stats.BankDeposit -= amount
	p.Stats.Money += amount
	return nil
}

// ApplyInterest adds rate*deposit, rounded to the nearest unit.
func (p *Player) ApplyInterest(rate float64) int {
	if p.Stats.BankDeposit <= 0 || rate <= 0 {
		return 0
	}
	bonus := int(math.Round(float64(p.Stats.BankDeposit) * rate))
	p.Stats.BankDeposit += bonus
	return bonus
}

// Settle withdraws the whole deposit back to cash.
func (p *Player) Settle() {
	p.Stats.Money += p.Stats.BankDeposit
	p.Stats.BankDeposit = 0
}

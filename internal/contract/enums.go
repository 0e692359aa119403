package contract

import (
	"fmt"
	"strings"

	"escrowScope/internal/model"
)

// CheckDeclaredOrder asserts that the local enum tables match the member order declared by
// the deployed contract. An empty declared list skips that enum.
func CheckDeclaredOrder(declaredStatus, declaredPaymentType []string) error {
	if err := checkTable("Status", model.StatusTable, declaredStatus); err != nil {
		return err
	}
	return checkTable("PaymentType", model.PaymentTypeTable, declaredPaymentType)
}

func checkTable(name string, table []model.EnumMember, declared []string) error {
	if len(declared) == 0 {
		return nil
	}
	if len(declared) != len(table) {
		return fmt.Errorf("%s enum: contract declares %d members, local table has %d", name, len(declared), len(table))
	}
	for i, member := range table {
		if int(member.Value) != i {
			return fmt.Errorf("%s enum: local member %s has value %d at position %d", name, member.Name, member.Value, i)
		}
		if !strings.EqualFold(strings.TrimSpace(declared[i]), member.Name) {
			return fmt.Errorf("%s enum: position %d is %q on chain, %q locally", name, i, declared[i], member.Name)
		}
	}
	return nil
}

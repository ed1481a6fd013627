package accounts

import "github.com/clinicbooks/clinicbooks/internal/model"

// DefaultChart returns the starter chart of accounts for a dental practice.
// Deductible accounts follow the carnê-leão livro-caixa rules: costs needed
// to keep the practice running. Capital purchases and personal spending are
// recorded but never reduce the tax base.
func DefaultChart(clinicID string) []model.ChartAccount {
	deductible := []string{
		"Aluguel do consultório",
		"Condomínio",
		"IPTU do consultório",
		"Energia elétrica",
		"Água e esgoto",
		"Telefone e internet",
		"Materiais odontológicos",
		"Serviços de laboratório de prótese",
		"Esterilização e descarte de resíduos",
		"Salários e encargos de auxiliares",
		"Anuidade CRO",
		"Contabilidade",
		"Material de escritório",
		"Limpeza e conservação",
	}
	nonDeductible := []string{
		"Compra de equipamentos",
		"Reforma do consultório",
		"Cursos e congressos",
		"Veículo",
		"Despesas pessoais",
	}

	chart := make([]model.ChartAccount, 0, len(deductible)+len(nonDeductible))
	for _, name := range deductible {
		chart = append(chart, model.ChartAccount{ClinicID: clinicID, Name: name, Deductible: true, Active: true, CreatedBy: "system"})
	}
	for _, name := range nonDeductible {
		chart = append(chart, model.ChartAccount{ClinicID: clinicID, Name: name, Active: true, CreatedBy: "system"})
	}
	return chart
}

package services

import "fmt"

// User-facing WhatsApp messages. The literals (including emphasis markers
// and the 0800 number) are the ones end users already know; do not reword
// without coordinating with support.
const (
	msgDuplicate = "Esta conta *já possui uma ORDEM DE SERVIÇO pendente*, aguarde a resolução, ou ligue *0800-062-1800 em caso de URGÊNCIA*."
	msgSuccess   = "Ordem de serviço emitida com sucesso! Aguarde o processo de análise, que logo entraremos em contato."
	msgFailure   = "Erro ao tentar emitir *ORDEM DE SERVIÇO*. Por favor, tente novamente em alguns instantes!"
)

// msgAskProblem greets the sender by display name and prompts for the
// free-text problem description.
func msgAskProblem(name string) string {
	return fmt.Sprintf("Olá %s. Agora, *ESCREVA* com detalhes o problema em questão, em *APENAS 1 MENSAGEM*; para abertura da *ORDEM DE SERVIÇO*! *(MÁXIMO 100 CARACTERES)*", name)
}

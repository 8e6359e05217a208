// Package domain define contratos e tipos de domínio do guard de webhook:
// histórico por cliente, bloqueios temporários, resultado da validação de payload
// e a taxonomia de erros traduzida para status HTTP na borda.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
